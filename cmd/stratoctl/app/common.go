// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/stratocloud/stratoctl/pkg/account"
	"github.com/stratocloud/stratoctl/pkg/auth"
	"github.com/stratocloud/stratoctl/pkg/config"
	"github.com/stratocloud/stratoctl/pkg/directory"
	"github.com/stratocloud/stratoctl/pkg/networking"
	"github.com/stratocloud/stratoctl/pkg/tokencache"
	"github.com/stratocloud/stratoctl/pkg/tokenstore"
)

// cliStack bundles the collaborators every command needs, built once from
// the application config.
type cliStack struct {
	config    *config.Config
	cache     *tokencache.Cache
	factory   auth.ContextFactory
	directory directory.Client
	resolver  *account.Resolver
}

// buildStack wires the credential cache, authentication factory, directory
// client and resolver from the application config.
func buildStack() (*cliStack, error) {
	cfg, err := config.LoadOrCreateConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	providerType, err := cfg.TokenStore.GetProviderType()
	if err != nil {
		return nil, err
	}
	store, err := tokenstore.Create(providerType)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	cache := tokencache.New(store)
	factory := auth.NewOAuthFactory(networking.NewHTTPClient(), cache)
	directoryClient := directory.NewClient(cfg.Environment.GetManagementURL())
	resolver := account.NewResolver(
		factory,
		directoryClient,
		cache,
		cfg.Environment.GetAuthorityURL(),
		cfg.Environment.GetManagementURL(),
		cfg.Environment.GetClientID(),
	)

	return &cliStack{
		config:    cfg,
		cache:     cache,
		factory:   factory,
		directory: directoryClient,
		resolver:  resolver,
	}, nil
}

// promptPassword reads a secret from the terminal without echoing it.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
