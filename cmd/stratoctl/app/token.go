// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stratocloud/stratoctl/pkg/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and manage the local credential cache",
	}
	cmd.AddCommand(newTokenListCmd())
	cmd.AddCommand(newTokenClearCmd())
	return cmd
}

func newTokenListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached credentials",
		RunE: func(_ *cobra.Command, _ []string) error {
			stack, err := buildStack()
			if err != nil {
				return err
			}

			entries, err := stack.cache.Find(auth.Query{})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("The credential cache is empty.")
				return nil
			}

			storage := "plaintext file"
			if stack.cache.IsSecure() {
				storage = "encrypted"
			}
			fmt.Printf("%d cached credential(s), storage: %s\n", len(entries), storage)

			table := tablewriter.NewWriter(os.Stdout)
			table.Options(
				tablewriter.WithHeader([]string{"User", "Tenant", "Resource", "Expires"}),
			)
			now := time.Now()
			for _, entry := range entries {
				expires := entry.ExpiresOn.Local().Format(time.RFC3339)
				if entry.ExpiresOn.Before(now) {
					expires = "expired"
				}
				if err := table.Append([]string{
					entry.UserID, entry.TenantID, entry.Resource, expires,
				}); err != nil {
					return fmt.Errorf("failed to append row: %w", err)
				}
			}
			return table.Render()
		},
	}
}

func newTokenClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached credential",
		RunE: func(_ *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("this removes all cached credentials for all users; rerun with --force to confirm")
			}

			stack, err := buildStack()
			if err != nil {
				return err
			}
			if err := stack.cache.Clear(); err != nil {
				return err
			}
			fmt.Println("Credential cache cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation check")

	return cmd
}
