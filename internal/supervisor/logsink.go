// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const defaultTailSize = 1000

// Sink drains a worker's output stream into an append-only log file and
// a bounded in-memory tail. One sink per logical worker category; the
// file accumulates across launches within a session. Drain is
// fire-and-forget: start it with go, never await it on the startup
// path. Wait exists for the optional flush at shutdown.
type Sink struct {
	path string
	tail *LogTail
	done chan struct{}
}

// NewSink creates a sink writing to <dir>/<name>.log.
func NewSink(dir, name string, tailSize int) *Sink {
	return &Sink{
		path: filepath.Join(dir, name+".log"),
		tail: NewLogTail(tailSize),
		done: make(chan struct{}),
	}
}

// Path returns the log file path.
func (s *Sink) Path() string {
	return s.path
}

// Drain consumes the worker's output until the terminated event. The
// caller has already returned by the time the file is opened, so an
// open failure is logged and the sink degrades to tail-only; it never
// propagates. Stdout and stderr are treated uniformly as lines appended
// to the same file; each stream's internal order is preserved,
// interleaving between the two is best-effort.
func (s *Sink) Drain(w *Worker) {
	defer close(s.done)

	f := s.openFile()
	if f != nil {
		defer f.Close()
	}

	for ev := range w.Events() {
		switch ev.Kind {
		case OutputStdout, OutputStderr:
			s.tail.Write(ev.Line)
			if f != nil {
				if _, err := fmt.Fprintln(f, ev.Line); err != nil {
					log.Printf("Log sink %s: write failed, stopping file output: %v", s.path, err)
					f.Close()
					f = nil
				}
			}
		case OutputError:
			log.Printf("Worker %s: output stream error: %v", w.Name(), ev.Err)
		case OutputTerminated:
			return
		}
	}
}

func (s *Sink) openFile() *os.File {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		log.Printf("Log sink: create log directory: %v", err)
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Log sink: open %s: %v", s.path, err)
		return nil
	}
	return f
}

// Wait blocks until the drain has finished or the timeout elapses.
// Reports whether the sink drained completely.
func (s *Sink) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

// Tail returns the last n drained lines.
func (s *Sink) Tail(n int) []string {
	return s.tail.Lines(n)
}

// LogTail is a thread-safe ring buffer of recent log lines.
type LogTail struct {
	mu       sync.RWMutex
	lines    []string
	capacity int
	size     int
	head     int // next write position
}

// NewLogTail creates a tail with the given capacity.
func NewLogTail(capacity int) *LogTail {
	if capacity <= 0 {
		capacity = defaultTailSize
	}
	return &LogTail{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Write adds a line to the tail.
func (t *LogTail) Write(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lines[t.head] = line
	t.head = (t.head + 1) % t.capacity
	if t.size < t.capacity {
		t.size++
	}
}

// Lines returns the last n lines in order. n <= 0 returns everything
// buffered.
func (t *LogTail) Lines(n int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n <= 0 || n > t.size {
		n = t.size
	}

	out := make([]string, 0, n)
	start := (t.head - n + t.capacity) % t.capacity
	for i := 0; i < n; i++ {
		out = append(out, t.lines[(start+i)%t.capacity])
	}
	return out
}

// Size returns the number of buffered lines.
func (t *LogTail) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}
