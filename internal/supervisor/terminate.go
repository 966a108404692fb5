// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"log"
	"time"
)

const killWaitTimeout = 5 * time.Second

// Strategy terminates a process and its OS-level descendants. Signal
// delivers the graceful-phase request to the tree; Kill terminates the
// tree unconditionally. Implementations are selected at runtime by
// capability probing, not conditional compilation.
type Strategy interface {
	Name() string
	Signal(pid int) error
	Kill(pid int) error
}

// Terminator runs the two-phase shutdown escalation against a worker.
// Termination failures are logged, never propagated: shutdown must not
// block application exit.
type Terminator struct {
	grace    time.Duration
	strategy Strategy // non-nil overrides per-worker selection (tests)
}

// NewTerminator creates a terminator with the given grace window
// between the graceful and forceful phases.
func NewTerminator(grace time.Duration) *Terminator {
	return &Terminator{grace: grace}
}

// Terminate stops the worker and its descendants. Phase 1 writes the
// exit sentinel and sends the strategy's graceful signal to the tree,
// then waits out the grace window. Phase 2 hard-kills the tree. Always
// returns with the worker either reaped or abandoned after logging.
func (t *Terminator) Terminate(w *Worker) {
	if w == nil || !w.Alive() {
		return
	}

	pid := w.PID()
	strat := t.strategy
	if strat == nil {
		strat = pickStrategy(pid)
	}

	log.Printf("Terminating worker %s (pid %d) via %s strategy", w.Name(), pid, strat.Name())

	if err := w.WriteSentinel(); err != nil {
		log.Printf("Worker %s: exit sentinel not delivered: %v", w.Name(), err)
	}
	if err := strat.Signal(pid); err != nil {
		log.Printf("Worker %s: graceful signal failed: %v", w.Name(), err)
	}

	if w.WaitExit(t.grace) {
		log.Printf("Worker %s exited gracefully (code %d)", w.Name(), w.ExitCode())
		return
	}

	if err := strat.Kill(pid); err != nil {
		log.Printf("Worker %s: kill failed: %v", w.Name(), err)
	}

	if w.WaitExit(killWaitTimeout) {
		log.Printf("Worker %s killed (code %d)", w.Name(), w.ExitCode())
	} else {
		log.Printf("Worker %s (pid %d) did not exit after kill", w.Name(), pid)
	}
}
