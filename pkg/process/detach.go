// Package process provides utilities for inspecting how the current process
// was started.
package process

import (
	"os"

	"golang.org/x/term"
)

// DetachedEnv marks a process launched in the background by another stratoctl
// invocation.
const DetachedEnv = "STRATOCTL_DETACHED"

// IsDetached returns whether the current process runs without a controlling
// terminal. Interactive prompts (passwords, device codes) must not be issued
// from a detached process.
func IsDetached() bool {
	if os.Getenv(DetachedEnv) == "1" {
		return true
	}
	return !term.IsTerminal(int(os.Stdin.Fd()))
}
