// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stratocloud/stratoctl/pkg/account"
	"github.com/stratocloud/stratoctl/pkg/auth"
	"github.com/stratocloud/stratoctl/pkg/errors"
	"github.com/stratocloud/stratoctl/pkg/logger"
)

func newLoginCmd() *cobra.Command {
	var (
		username         string
		password         string
		servicePrincipal bool
		secret           string
		tenant           string
		useDeviceCode    bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and discover the subscriptions you can manage",
		Long: `Sign in to the Strato cloud and list every subscription the identity
can manage. User accounts are looked up across all of their tenants;
service principals sign in to the single tenant they belong to.

Accounts that require multi-factor authentication must use --use-device-code.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stack, err := buildStack()
			if err != nil {
				return err
			}

			opts, err := loginOptions(username, password, servicePrincipal, secret, tenant, useDeviceCode)
			if err != nil {
				return err
			}

			result, err := stack.resolver.Load(cmd.Context(), opts)
			if err != nil {
				if errors.IsMFARequired(err) && !useDeviceCode {
					return fmt.Errorf("%w\nretry with --use-device-code to complete multi-factor authentication", err)
				}
				return err
			}

			logger.Infof("signed in; %d tenant(s), %d subscription(s)",
				len(result.TenantIDs), len(result.Subscriptions))
			return printSubscriptions(result.Subscriptions)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "User name or service principal client ID")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().BoolVar(&servicePrincipal, "service-principal", false, "Sign in an application identity with a client secret")
	cmd.Flags().StringVar(&secret, "secret", "", "Client secret for --service-principal")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant to sign in to (required for --service-principal)")
	cmd.Flags().BoolVar(&useDeviceCode, "use-device-code", false, "Sign in interactively with a device code (supports MFA)")

	return cmd
}

// loginOptions maps the flag surface onto a login request, prompting for
// missing secrets where the flow needs one.
func loginOptions(
	username, password string,
	servicePrincipal bool,
	secret, tenant string,
	useDeviceCode bool,
) (account.LoadOptions, error) {
	opts := account.LoadOptions{
		Username:   username,
		TenantHint: tenant,
	}

	switch {
	case servicePrincipal:
		if username == "" {
			return opts, fmt.Errorf("--username (the client ID) is required for --service-principal")
		}
		opts.Kind = auth.LoginKindServicePrincipal
		opts.Secret = secret
		if opts.Secret == "" {
			var err error
			opts.Secret, err = promptPassword("Client secret: ")
			if err != nil {
				return opts, err
			}
		}
	case useDeviceCode:
		opts.Kind = auth.LoginKindDeviceCode
		opts.UserCodePrompt = func(message string) {
			fmt.Fprintln(os.Stderr, message)
		}
	default:
		if username == "" {
			return opts, fmt.Errorf("--username is required unless --use-device-code is set")
		}
		opts.Kind = auth.LoginKindUser
		opts.Secret = password
		if opts.Secret == "" {
			var err error
			opts.Secret, err = promptPassword("Password: ")
			if err != nil {
				return opts, err
			}
		}
	}

	return opts, nil
}

// printSubscriptions renders the subscription list as a table on stdout.
func printSubscriptions(subscriptions []auth.SubscriptionRecord) error {
	if len(subscriptions) == 0 {
		fmt.Println("No subscriptions found.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Options(
		tablewriter.WithHeader([]string{"Subscription ID", "Name", "Tenant", "User", "Type"}),
	)
	for _, subscription := range subscriptions {
		if err := table.Append([]string{
			subscription.SubscriptionID,
			subscription.DisplayName,
			subscription.TenantID,
			subscription.Username,
			subscription.UserType,
		}); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	return table.Render()
}
