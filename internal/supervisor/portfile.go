// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// PortFileName is the well-known file the backend writes its HTTP
	// port into, under the app's per-user config directory.
	PortFileName = "backend.port"

	defaultPortTimeout = 30 * time.Second
	defaultPortPoll    = 100 * time.Millisecond
)

// TimeoutError reports that the backend never advertised a port within
// the discovery window.
type TimeoutError struct {
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("port file not written within %s", e.Elapsed.Round(time.Millisecond))
}

// PortFile is the rendezvous point between the supervisor and the
// backend it launched. The backend writes its bound port here once its
// server is listening; the supervisor clears the file before launch and
// polls it afterwards. A malformed file is treated exactly like an
// absent one so a partially flushed write is retried, not failed.
type PortFile struct {
	path string
}

// NewPortFile resolves the port file under the per-user config
// directory for the given app name.
func NewPortFile(appName string) (*PortFile, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user config dir: %w", err)
	}
	return &PortFile{path: filepath.Join(dir, appName, PortFileName)}, nil
}

// NewPortFileAt uses an explicit path, bypassing config-dir resolution.
func NewPortFileAt(path string) *PortFile {
	return &PortFile{path: path}
}

// Path returns the port file location.
func (p *PortFile) Path() string {
	return p.path
}

// Clear removes a stale port file so this launch cannot observe a port
// advertised by a previous run. Absence is not an error.
func (p *PortFile) Clear() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove port file: %w", err)
	}
	return nil
}

// Read parses the current port file contents. Returns 0 and no error
// when the file is absent or does not yet hold a valid port.
func (p *PortFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read port file: %w", err)
	}

	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || port < 1 || port > 65535 {
		// Partial or garbage write; the next poll sees the full value.
		return 0, nil
	}
	return port, nil
}

// Wait blocks until the backend advertises a valid port, the timeout
// elapses, or ctx is canceled. It polls at the given interval and
// additionally watches the parent directory so a write is usually
// observed within one event rather than one poll period.
func (p *PortFile) Wait(ctx context.Context, timeout, poll time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = defaultPortTimeout
	}
	if poll <= 0 {
		poll = defaultPortPoll
	}

	start := time.Now()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	// The watcher is a latency optimization only; if the directory does
	// not exist yet or inotify is unavailable, polling still covers us.
	var watch chan fsnotify.Event
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(filepath.Dir(p.path)); err == nil {
			watch = make(chan fsnotify.Event, 1)
			go func() {
				for {
					select {
					case ev, ok := <-w.Events:
						if !ok {
							return
						}
						if ev.Name == p.path {
							select {
							case watch <- ev:
							default:
							}
						}
					case <-w.Errors:
					}
				}
			}()
		}
		defer w.Close()
	}

	for {
		if port, err := p.Read(); err != nil {
			return 0, err
		} else if port != 0 {
			return port, nil
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline.C:
			return 0, &TimeoutError{Elapsed: time.Since(start)}
		case <-ticker.C:
		case <-watch:
		}
	}
}
