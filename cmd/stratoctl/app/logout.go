// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <username>",
		Short: "Remove every cached credential for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			stack, err := buildStack()
			if err != nil {
				return err
			}

			removed, err := stack.resolver.Logout(args[0])
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Printf("No cached credentials for %s.\n", args[0])
				return nil
			}
			fmt.Printf("Removed %d cached credential(s) for %s.\n", removed, args[0])
			return nil
		},
	}
}
