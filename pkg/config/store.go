// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/stratocloud/stratoctl/pkg/logger"
)

// lockTimeout is the maximum time to wait for a file lock
const lockTimeout = 1 * time.Second

// Store defines the interface for configuration storage operations
type Store interface {
	// Load loads the configuration from storage
	Load() (*Config, error)
	// Save saves the configuration to storage
	Save(config *Config) error
	// Update performs a locked update operation on the configuration
	Update(updateFn func(*Config)) error
}

// LocalStore implements Store using the local file system
type LocalStore struct {
	configPath string
}

// NewConfigStore creates a configuration store at the default path.
func NewConfigStore() (*LocalStore, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to fetch config path: %w", err)
	}
	return NewLocalStore(configPath), nil
}

// NewLocalStore creates a new local file-based configuration store
func NewLocalStore(configPath string) *LocalStore {
	return &LocalStore{
		configPath: configPath,
	}
}

// Load loads configuration from the local file, creating it with default
// values when it does not exist yet.
func (s *LocalStore) Load() (*Config, error) {
	configPath := path.Clean(s.configPath)

	_, err := os.Stat(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}

		config := createNewConfigWithDefaults()
		logger.Debugf("initializing configuration file at %s", configPath)
		if err := config.saveToPath(configPath); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return &config, nil
	}

	// #nosec G304: File path is not configurable at this time.
	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// Save saves the configuration to the local file.
func (s *LocalStore) Save(config *Config) error {
	return config.saveToPath(s.configPath)
}

// Update performs a load-modify-save cycle under an exclusive file lock so
// concurrent invocations do not clobber each other's changes.
func (s *LocalStore) Update(updateFn func(*Config)) error {
	fileLock := flock.New(s.configPath + ".lock")
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			logger.Warnf("failed to release config lock: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire config lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("timed out waiting for config lock")
	}

	config, err := s.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	updateFn(config)

	if err := s.Save(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
