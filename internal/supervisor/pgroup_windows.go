// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package supervisor

// pickStrategy selects the tree strategy on Windows, where there is no
// process-group signaling; the parent-PID walk kills parent and
// children to the same contract.
func pickStrategy(pid int) Strategy {
	return treeStrategy{}
}
