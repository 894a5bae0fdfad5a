// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratocloud/stratoctl/pkg/auth"
	"github.com/stratocloud/stratoctl/pkg/logger"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect the subscriptions of a signed-in identity",
	}
	cmd.AddCommand(newAccountListCmd())
	return cmd
}

func newAccountListCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions using cached credentials",
		Long: `List the subscriptions visible to a previously signed-in user without
prompting for a password. Expired credentials are refreshed silently where
a refresh token is available; run 'stratoctl login' again otherwise.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stack, err := buildStack()
			if err != nil {
				return err
			}

			managementURL := stack.config.Environment.GetManagementURL()
			clientID := stack.config.Environment.GetClientID()

			entries, err := stack.cache.Find(auth.Query{
				UserID:   username,
				Resource: managementURL,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("no cached credentials for %s; run 'stratoctl login' first", username)
			}

			// One cached entry per tenant; reacquire each one silently so
			// expired tokens get refreshed before hitting the directory.
			var subscriptions []auth.SubscriptionRecord
			seen := map[string]bool{}
			for _, entry := range entries {
				if seen[entry.TenantID] {
					continue
				}
				seen[entry.TenantID] = true

				authContext := stack.factory.Context(entry.Authority)
				cred, err := authContext.AcquireToken(cmd.Context(), managementURL, entry.UserID, clientID)
				if err != nil {
					return err
				}

				tenantSubscriptions, err := stack.directory.ListSubscriptions(cmd.Context(), cred)
				if err != nil {
					return fmt.Errorf("failed to list subscriptions in tenant %s: %w", entry.TenantID, err)
				}
				for _, subscription := range tenantSubscriptions {
					if subscription.TenantID == "" {
						subscription.TenantID = entry.TenantID
					}
					subscription.Username = cred.UserID
					subscriptions = append(subscriptions, subscription)
				}
			}

			logger.Debugf("resolved %d subscription(s) from %d cached tenant(s)", len(subscriptions), len(seen))
			return printSubscriptions(subscriptions)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "User whose cached credentials to use")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}
