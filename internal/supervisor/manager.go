// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/lattice/internal/config"
	"github.com/wingedpig/lattice/internal/events"
)

const sinkFlushTimeout = 2 * time.Second

// Supervisor owns the backend worker processes for one application
// session: it launches them, captures their output, discovers the
// backend's HTTP port, and tears the whole tree down on shutdown.
type Supervisor struct {
	cfg        *config.Config
	bus        events.EventBus
	session    string
	runner     string
	backendDir string
	sinkDir    string
	portFile   *PortFile
	terminator *Terminator

	portTimeout time.Duration
	portPoll    time.Duration

	mu        sync.Mutex
	state     State
	port      int
	workers   []*Worker
	sinks     []*Sink
	main      *Worker
	startedAt time.Time
}

// New creates a supervisor from configuration. The backend directory
// must resolve and the port file location must be derivable; everything
// else is checked at StartAll.
func New(cfg *config.Config, bus events.EventBus) (*Supervisor, error) {
	backendDir, err := ResolveBackendPath(cfg.Backend.Path, cfg.Backend.ResourceRoot, cfg.Backend.Marker)
	if err != nil {
		return nil, err
	}

	var pf *PortFile
	if cfg.Backend.PortFile != "" {
		pf = NewPortFileAt(cfg.Backend.PortFile)
	} else {
		pf, err = NewPortFile(cfg.App.Name)
		if err != nil {
			return nil, err
		}
	}

	logDir := cfg.Backend.LogDir
	if logDir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user cache dir: %w", err)
		}
		logDir = filepath.Join(cache, cfg.App.Name)
	}

	session := uuid.New().String()
	bus.SetDefaultSession(session)

	return &Supervisor{
		cfg:         cfg,
		bus:         bus,
		session:     session,
		runner:      cfg.Backend.Runner,
		backendDir:  backendDir,
		sinkDir:     filepath.Join(logDir, "backend"),
		portFile:    pf,
		terminator:  NewTerminator(config.ParseDuration(cfg.Backend.StopGrace, 3*time.Second)),
		portTimeout: config.ParseDuration(cfg.Backend.PortTimeout, defaultPortTimeout),
		portPoll:    config.ParseDuration(cfg.Backend.PortPoll, defaultPortPoll),
		state:       StateIdle,
	}, nil
}

// Session returns the supervisor session ID.
func (s *Supervisor) Session() string {
	return s.session
}

// BackendDir returns the resolved backend working directory.
func (s *Supervisor) BackendDir() string {
	return s.backendDir
}

// StartAll brings the backend up: verifies tooling, syncs dependencies,
// runs database initialization, launches the main worker and waits for
// it to advertise its port. An error return means the backend is
// unavailable; auxiliary step failures are logged and do not abort.
func (s *Supervisor) StartAll(ctx context.Context) error {
	s.mu.Lock()
	// One launch per supervisor lifetime: the port is set at most once,
	// so a retry constructs a fresh supervisor rather than reusing this
	// one.
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("supervisor already started (state %s)", s.state)
	}
	s.state = StateSyncingDeps
	s.startedAt = time.Now()
	s.mu.Unlock()

	if _, err := exec.LookPath(s.runner); err != nil {
		s.fail("tooling", err)
		return fmt.Errorf("%w: %s: %v", ErrToolingNotFound, s.runner, err)
	}

	s.publish(events.EventBackendSyncing, map[string]interface{}{
		"runner": s.runner,
		"dir":    s.backendDir,
	})

	// Dependency sync and database init are best-effort: a failure here
	// is visible in the logs, and the main worker surfaces any real
	// breakage on its own.
	if err := s.runStep(ctx, "sync", []string{s.runner, "sync", "--frozen"}); err != nil {
		log.Printf("Dependency sync failed (continuing): %v", err)
	}

	if mod := s.cfg.Backend.InitDBModule; mod != "" {
		if err := s.runStep(ctx, "initdb", s.runnerArgv(mod)); err != nil {
			log.Printf("Database init failed (continuing): %v", err)
		}
	}

	if err := s.portFile.Clear(); err != nil {
		log.Printf("Stale port file not cleared: %v", err)
	}

	s.setState(StateLaunching)

	mod := s.cfg.Backend.MainModule
	w, err := launchWorker("backend", mod, s.runnerArgv(mod), s.backendDir, s.cfg.Backend.Env)
	if err != nil {
		s.fail(mod, err)
		return err
	}

	sink := NewSink(s.sinkDir, w.Name(), s.cfg.Backend.LogTailSize)
	go sink.Drain(w)
	s.track(w, sink)
	go s.watchExit(w)

	s.publish(events.EventWorkerSpawned, map[string]interface{}{
		"name":   w.Name(),
		"module": mod,
		"pid":    w.PID(),
	})
	s.publish(events.EventBackendStarted, map[string]interface{}{
		"module": mod,
		"pid":    w.PID(),
	})

	s.setState(StateWaitingPort)

	port, err := s.portFile.Wait(ctx, s.portTimeout, s.portPoll)
	if err != nil {
		s.fail(mod, err)
		return fmt.Errorf("backend unavailable: %w", err)
	}

	s.mu.Lock()
	s.port = port
	s.state = StateReady
	s.mu.Unlock()

	s.publish(events.EventBackendReady, map[string]interface{}{
		"port": port,
		"url":  fmt.Sprintf("http://127.0.0.1:%d", port),
	})
	log.Printf("Backend ready on port %d (pid %d)", port, w.PID())
	return nil
}

// runStep runs one auxiliary worker to completion, draining its output
// into its own log sink. Returns an error on launch failure, nonzero
// exit, or context cancellation.
func (s *Supervisor) runStep(ctx context.Context, name string, argv []string) error {
	w, err := launchWorker(name, name, argv, s.backendDir, s.cfg.Backend.Env)
	if err != nil {
		return err
	}

	sink := NewSink(s.sinkDir, name, s.cfg.Backend.LogTailSize)
	go sink.Drain(w)

	select {
	case <-w.Done():
	case <-ctx.Done():
		s.terminator.Terminate(w)
		return ctx.Err()
	}
	sink.Wait(sinkFlushTimeout)

	if code := w.ExitCode(); code != 0 {
		return fmt.Errorf("%s exited with code %d", name, code)
	}
	return nil
}

// runnerArgv builds "<runner> run [--env-file <path>] -m <module>".
func (s *Supervisor) runnerArgv(module string) []string {
	argv := []string{s.runner, "run"}
	if s.cfg.Backend.EnvFile != "" {
		argv = append(argv, "--env-file", s.cfg.Backend.EnvFile)
	}
	return append(argv, "-m", module)
}

func (s *Supervisor) track(w *Worker, sink *Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, w)
	s.sinks = append(s.sinks, sink)
	s.main = w
}

// watchExit publishes the worker's exit event; the exit is additionally
// logged as unexpected unless a shutdown is in progress.
func (s *Supervisor) watchExit(w *Worker) {
	<-w.Done()

	s.publish(events.EventWorkerExited, map[string]interface{}{
		"name": w.Name(),
		"pid":  w.PID(),
		"code": w.ExitCode(),
	})

	s.mu.Lock()
	stopping := s.state == StateStopping || s.state == StateStopped
	s.mu.Unlock()
	if !stopping {
		log.Printf("Backend worker %s (pid %d) exited unexpectedly with code %d", w.Name(), w.PID(), w.ExitCode())
	}
}

// StopAll terminates every worker and its descendants. It never returns
// an error: each failure is logged and shutdown proceeds regardless.
// Safe to call more than once; later calls are no-ops.
func (s *Supervisor) StopAll(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateStopping || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	workers, sinks := s.drainLocked()
	s.mu.Unlock()

	s.publish(events.EventBackendStopping, map[string]interface{}{
		"workers": len(workers),
	})

	s.terminateAll(ctx, workers)
	s.flushSinks(sinks)

	s.setState(StateStopped)
	s.publish(events.EventBackendStopped, nil)
}

// drainLocked empties the tracked worker set. Caller holds s.mu. Sinks
// stay tracked so the log tail remains queryable after stop.
func (s *Supervisor) drainLocked() ([]*Worker, []*Sink) {
	workers := make([]*Worker, len(s.workers))
	copy(workers, s.workers)
	sinks := make([]*Sink, len(s.sinks))
	copy(sinks, s.sinks)
	s.workers = nil
	s.main = nil
	return workers, sinks
}

func (s *Supervisor) terminateAll(ctx context.Context, workers []*Worker) {
	g, _ := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		g.Go(func() error {
			s.terminator.Terminate(w)
			return nil
		})
	}
	g.Wait()
}

func (s *Supervisor) flushSinks(sinks []*Sink) {
	for _, sink := range sinks {
		if !sink.Wait(sinkFlushTimeout) {
			log.Printf("Log sink %s did not flush before timeout", sink.Path())
		}
	}
}

// Port returns the discovered backend port. The second return is false
// until discovery completes. The port is set at most once per session
// and kept through shutdown; a fresh launch gets a fresh supervisor.
func (s *Supervisor) Port() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == 0 {
		return 0, false
	}
	return s.port, true
}

// URL returns the backend base URL, or false while no port is known.
func (s *Supervisor) URL() (string, bool) {
	port, ok := s.Port()
	if !ok {
		return "", false
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port), true
}

// Status returns a point-in-time snapshot.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:     s.state,
		Port:      s.port,
		Session:   s.session,
		StartedAt: s.startedAt,
	}
	if s.main != nil && s.main.Alive() {
		st.PID = s.main.PID()
	}
	return st
}

// Logs returns the last n lines of the main worker's output. Empty when
// no worker has run.
func (s *Supervisor) Logs(n int) []string {
	s.mu.Lock()
	sinks := s.sinks
	s.mu.Unlock()

	for _, sink := range sinks {
		if filepath.Base(sink.Path()) == "backend.log" {
			return sink.Tail(n)
		}
	}
	return nil
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// fail aborts startup. Anything spawned before the failure is torn down
// through the same termination path as StopAll, so a failed start never
// leaves a live worker behind.
func (s *Supervisor) fail(module string, err error) {
	s.mu.Lock()
	s.state = StateStopping
	workers, sinks := s.drainLocked()
	s.mu.Unlock()

	s.terminateAll(context.Background(), workers)
	s.flushSinks(sinks)

	s.setState(StateStopped)
	s.publish(events.EventBackendFailed, map[string]interface{}{
		"module": module,
		"error":  err.Error(),
	})
}

func (s *Supervisor) publish(eventType string, payload map[string]interface{}) {
	ev := events.Event{
		ID:        uuid.New().String(),
		Version:   "1.0",
		Type:      eventType,
		Timestamp: time.Now(),
		Session:   s.session,
		Payload:   payload,
	}
	if err := s.bus.Publish(context.Background(), ev); err != nil {
		log.Printf("Publish %s: %v", eventType, err)
	}
}
