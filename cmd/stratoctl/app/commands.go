// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the stratoctl command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stratocloud/stratoctl/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "stratoctl",
	DisableAutoGenTag: true,
	Short:             "stratoctl is the command-line client for the Strato cloud",
	Long: `stratoctl is the command-line client for the Strato cloud.

It signs identities in against the Strato identity service, caches the
resulting credentials locally, and enumerates the subscriptions those
identities can manage across every tenant they belong to.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
}

// NewRootCmd creates a new root command for the stratoctl CLI.
func NewRootCmd() *cobra.Command {
	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newAccountCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
