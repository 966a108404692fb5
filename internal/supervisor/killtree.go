// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"os"
	"syscall"

	ps "github.com/mitchellh/go-ps"
)

// treeStrategy terminates a process tree by enumerating descendants
// through parent-PID lookup. It is available on every platform and is
// the fallback when process-group signaling is not.
type treeStrategy struct{}

func (treeStrategy) Name() string {
	return "tree"
}

func (treeStrategy) Signal(pid int) error {
	return signalTree(pid, false)
}

func (treeStrategy) Kill(pid int) error {
	return signalTree(pid, true)
}

// signalTree signals descendants before the root so the parent cannot
// respawn or reap children mid-walk.
func signalTree(root int, force bool) error {
	pids := append(descendants(root), root)

	var firstErr error
	for _, pid := range pids {
		proc, err := os.FindProcess(pid)
		if err != nil {
			continue
		}
		if force {
			err = proc.Kill()
		} else {
			err = proc.Signal(os.Interrupt)
		}
		// A process that vanished mid-walk is the goal, not a failure.
		if err != nil && firstErr == nil && !errors.Is(err, os.ErrProcessDone) && !errors.Is(err, syscall.ESRCH) {
			firstErr = err
		}
	}
	return firstErr
}

// descendants returns the transitive children of root, breadth-first.
// The snapshot is best-effort: processes spawned during the walk may be
// missed, which is why callers escalate to Kill afterwards.
func descendants(root int) []int {
	procs, err := ps.Processes()
	if err != nil {
		return nil
	}

	children := make(map[int][]int)
	for _, p := range procs {
		children[p.PPid()] = append(children[p.PPid()], p.Pid())
	}

	var out []int
	queue := []int{root}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, c := range children[pid] {
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}
