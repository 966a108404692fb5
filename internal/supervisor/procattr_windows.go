// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package supervisor

import (
	"os/exec"
)

// configureSysProcAttr is a no-op on Windows; descendant termination is
// handled by the tree strategy instead of process groups.
func configureSysProcAttr(cmd *exec.Cmd) {
}
