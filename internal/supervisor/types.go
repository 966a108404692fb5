// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package supervisor launches, supervises and terminates the backend
// worker processes for one application session.
package supervisor

import (
	"errors"
	"fmt"
	"time"
)

// State represents the supervisor lifecycle state.
type State int

const (
	StateIdle State = iota
	StateSyncingDeps
	StateLaunching
	StateWaitingPort
	StateReady
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncingDeps:
		return "syncing-deps"
	case StateLaunching:
		return "launching"
	case StateWaitingPort:
		return "waiting-port"
	case StateReady:
		return "ready"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler to output the string representation.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// ExitSentinel is written to a worker's stdin as the graceful-shutdown
// request. Workers treat receipt of this exact token as a directive to
// exit.
const ExitSentinel = "__EXIT__\n"

// ErrToolingNotFound indicates the external task runner is not reachable.
// Startup aborts before anything is spawned.
var ErrToolingNotFound = errors.New("backend task runner not found")

// LaunchError indicates the OS refused to create a worker process.
type LaunchError struct {
	Module string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Module, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// OutputKind identifies the kind of a worker output event.
type OutputKind int

const (
	OutputStdout OutputKind = iota
	OutputStderr
	OutputError
	OutputTerminated
)

// OutputEvent is one event on a worker's output stream. The stream ends
// with a single OutputTerminated event.
type OutputEvent struct {
	Kind     OutputKind
	Line     string // stdout/stderr line, trailing newline removed
	Err      error  // set for OutputError
	ExitCode int    // set for OutputTerminated
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State     State     `json:"state"`
	Port      int       `json:"port,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Session   string    `json:"session"`
	StartedAt time.Time `json:"startedAt,omitempty"`
}
