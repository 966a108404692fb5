// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Worker is one supervised OS process. It owns the process handle, a
// writable stdin for the exit sentinel, and a stream of output events
// that ends with a single OutputTerminated event.
type Worker struct {
	name   string
	module string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan OutputEvent
	done   chan struct{}

	mu       sync.Mutex
	exitCode int
	exited   bool
}

// launchWorker starts argv in workdir with the inherited environment
// plus env overrides. The process is placed in its own process group
// where the platform supports it.
func launchWorker(name, module string, argv []string, workdir string, env map[string]string) (*Worker, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = workdir

	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	configureSysProcAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &LaunchError{Module: module, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, &LaunchError{Module: module, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		return nil, &LaunchError{Module: module, Err: err}
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, &LaunchError{Module: module, Err: err}
	}

	w := &Worker{
		name:   name,
		module: module,
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan OutputEvent, 64),
		done:   make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go w.capture(stdout, OutputStdout, &wg)
	go w.capture(stderr, OutputStderr, &wg)

	go func() {
		wg.Wait()
		err := cmd.Wait()

		code := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			} else {
				code = -1
			}
		}

		w.mu.Lock()
		w.exitCode = code
		w.exited = true
		w.mu.Unlock()

		w.events <- OutputEvent{Kind: OutputTerminated, ExitCode: code}
		close(w.events)
		close(w.done)
	}()

	return w, nil
}

// Name returns the worker's logical name (log file category).
func (w *Worker) Name() string {
	return w.name
}

// Module returns the backend module this worker runs.
func (w *Worker) Module() string {
	return w.module
}

// PID returns the OS process ID.
func (w *Worker) PID() int {
	return w.cmd.Process.Pid
}

// Events returns the output event stream. The channel is closed after
// the OutputTerminated event has been delivered.
func (w *Worker) Events() <-chan OutputEvent {
	return w.events
}

// Done is closed once the process has exited and been reaped.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// ExitCode returns the process exit code. Only meaningful after Done.
func (w *Worker) ExitCode() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exitCode
}

// Alive reports whether the process has not yet been reaped.
func (w *Worker) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.exited
}

// WriteSentinel writes the exit sentinel to the worker's stdin. An
// error means the input channel is unavailable; the caller escalates.
func (w *Worker) WriteSentinel() error {
	_, err := io.WriteString(w.stdin, ExitSentinel)
	return err
}

// WaitExit blocks until the process exits or the duration elapses.
// Reports whether the process exited.
func (w *Worker) WaitExit(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-w.done:
		return true
	case <-timer.C:
		return false
	}
}

func (w *Worker) capture(r io.Reader, kind OutputKind, wg *sync.WaitGroup) {
	defer wg.Done()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")

			// Cap stored lines at 1MB.
			const maxLineLen = 1024 * 1024
			if len(line) > maxLineLen {
				line = line[:maxLineLen] + "... [truncated]"
			}
			w.events <- OutputEvent{Kind: kind, Line: line}
		}
		if err != nil {
			if err != io.EOF {
				w.events <- OutputEvent{Kind: OutputError, Err: err}
			}
			return
		}
	}
}
