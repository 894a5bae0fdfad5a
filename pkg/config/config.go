// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config contains the definition of the application config structure
// and logic required to load and update it.
package config

import (
	"fmt"
	"os"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/stratocloud/stratoctl/pkg/env"
	"github.com/stratocloud/stratoctl/pkg/tokenstore"
)

// Environment variable overrides for the endpoint settings. They take
// precedence over the config file when set.
const (
	AuthorityEnvVar  = "STRATOCTL_AUTHORITY_URL"
	ManagementEnvVar = "STRATOCTL_MANAGEMENT_URL"
	ClientIDEnvVar   = "STRATOCTL_CLIENT_ID"
)

// Default endpoints for the public Strato cloud.
const (
	DefaultAuthorityURL  = "https://login.stratocloud.io"
	DefaultManagementURL = "https://management.stratocloud.io"
	DefaultClientID      = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"
)

// Config represents the configuration of the application.
type Config struct {
	Environment Environment `yaml:"environment"`
	TokenStore  TokenStore  `yaml:"token_store"`
}

// Environment contains the endpoints of the cloud the CLI talks to.
type Environment struct {
	AuthorityURL  string `yaml:"authority_url"`
	ManagementURL string `yaml:"management_url"`
	ClientID      string `yaml:"client_id"`
}

// TokenStore contains the settings for credential storage.
type TokenStore struct {
	ProviderType string `yaml:"provider_type"`
}

// GetAuthorityURL returns the authentication authority, honoring the
// environment variable override.
func (e *Environment) GetAuthorityURL() string {
	return e.getWithEnv(&env.OSReader{}, AuthorityEnvVar, e.AuthorityURL)
}

// GetManagementURL returns the management endpoint, honoring the
// environment variable override.
func (e *Environment) GetManagementURL() string {
	return e.getWithEnv(&env.OSReader{}, ManagementEnvVar, e.ManagementURL)
}

// GetClientID returns the OAuth client ID, honoring the environment
// variable override.
func (e *Environment) GetClientID() string {
	return e.getWithEnv(&env.OSReader{}, ClientIDEnvVar, e.ClientID)
}

func (*Environment) getWithEnv(envReader env.Reader, envVar, configured string) string {
	if value := envReader.Getenv(envVar); value != "" {
		return value
	}
	return configured
}

// GetProviderType returns the token store provider type from the environment
// variable or the application config.
func (t *TokenStore) GetProviderType() (tokenstore.ProviderType, error) {
	return t.GetProviderTypeWithEnv(&env.OSReader{})
}

// GetProviderTypeWithEnv returns the token store provider type using the
// provided environment reader. This method allows for dependency injection
// of environment variable access for testing.
func (t *TokenStore) GetProviderTypeWithEnv(envReader env.Reader) (tokenstore.ProviderType, error) {
	if envVar := envReader.Getenv(tokenstore.ProviderEnvVar); envVar != "" {
		return tokenstore.ParseProviderType(envVar)
	}
	return tokenstore.ParseProviderType(t.ProviderType)
}

// defaultPathGenerator generates the default config path using xdg
var defaultPathGenerator = func() (string, error) {
	return xdg.ConfigFile("stratoctl/config.yaml")
}

// getConfigPath is the current path generator, can be replaced in tests
var getConfigPath = defaultPathGenerator

// createNewConfigWithDefaults creates a new config with default values
func createNewConfigWithDefaults() Config {
	return Config{
		Environment: Environment{
			AuthorityURL:  DefaultAuthorityURL,
			ManagementURL: DefaultManagementURL,
			ClientID:      DefaultClientID,
		},
		TokenStore: TokenStore{
			ProviderType: string(tokenstore.FileType),
		},
	}
}

// LoadOrCreateConfig fetches the application configuration.
// If it does not already exist - it will create a new config file with default values.
func LoadOrCreateConfig() (*Config, error) {
	store, err := NewConfigStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create config store: %w", err)
	}
	return store.Load()
}

// Save serializes the config struct and writes it to disk.
func (c *Config) save() error {
	return c.saveToPath("")
}

// saveToPath serializes the config struct and writes it to a specific path.
// If configPath is empty, it uses the default path.
func (c *Config) saveToPath(configPath string) error {
	if configPath == "" {
		var err error
		configPath, err = getConfigPath()
		if err != nil {
			return fmt.Errorf("unable to fetch config path: %w", err)
		}
	}

	configBytes, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error serializing config file: %w", err)
	}

	err = os.WriteFile(configPath, configBytes, 0600)
	if err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// UpdateConfig loads config from the default store, applies changes, and saves back.
func UpdateConfig(updateFn func(*Config)) error {
	store, err := NewConfigStore()
	if err != nil {
		return fmt.Errorf("failed to create config store: %w", err)
	}
	return store.Update(updateFn)
}
