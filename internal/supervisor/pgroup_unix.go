// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"syscall"
)

// pickStrategy probes platform capabilities at runtime. When the worker
// has its own process group, group signaling covers the whole tree in
// one kernel operation; otherwise fall back to the parent-PID walk.
func pickStrategy(pid int) Strategy {
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
		return groupStrategy{pgid: pgid}
	}
	return treeStrategy{}
}

// groupStrategy signals the whole process group at once.
type groupStrategy struct {
	pgid int
}

func (groupStrategy) Name() string {
	return "process-group"
}

func (g groupStrategy) Signal(pid int) error {
	if err := syscall.Kill(-g.pgid, syscall.SIGINT); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal process group %d: %w", g.pgid, err)
	}
	return nil
}

func (g groupStrategy) Kill(pid int) error {
	if err := syscall.Kill(-g.pgid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", g.pgid, err)
	}
	return nil
}
