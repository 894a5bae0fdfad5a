// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the stratoctl CLI.
package main

import (
	"os"

	"github.com/stratocloud/stratoctl/cmd/stratoctl/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
