// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the supervisor, event bus and query API together.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/lattice/internal/api"
	"github.com/wingedpig/lattice/internal/config"
	"github.com/wingedpig/lattice/internal/events"
	"github.com/wingedpig/lattice/internal/supervisor"
)

// App is the main application container.
type App struct {
	mu sync.RWMutex

	config     *config.Config
	eventBus   events.EventBus
	supervisor *supervisor.Supervisor
	apiServer  *api.Server

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
}

// New creates a new App instance.
func New(opts Options) (*App, error) {
	app := &App{
		done: make(chan struct{}),
	}

	// Load configuration; without a file, run on defaults
	var cfg *config.Config
	if opts.ConfigPath != "" {
		loader := config.NewLoader()
		loaded, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	app.config = cfg

	// Override host/port if specified
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	// Initialize event bus
	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
	})

	return app, nil
}

// Initialize sets up all components.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	sup, err := supervisor.New(cfg, app.eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize supervisor: %w", err)
	}
	app.supervisor = sup
	log.Printf("Supervisor session %s, backend dir %s", sup.Session(), sup.BackendDir())

	app.apiServer = api.NewServer(
		api.ServerConfig{
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		},
		api.Dependencies{
			Backend:  sup,
			EventBus: app.eventBus,
			Shutdown: app.Stop,
		},
	)

	return nil
}

// Start starts all components.
func (app *App) Start(ctx context.Context) error {
	// The query API comes up regardless of the backend's fate, so the UI
	// can always read status and logs. A dead backend is reported through
	// the status endpoint, not by refusing connections.
	if err := app.supervisor.StartAll(ctx); err != nil {
		log.Printf("Warning: backend did not start: %v", err)
	}

	// Start API server in background
	go func() {
		log.Printf("Starting API server on %s:%d", app.config.Server.Host, app.config.Server.Port)
		if err := app.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()

	return nil
}

// Run starts the app and blocks until shutdown. Worker cleanup is tied
// to this scope: once Initialize has succeeded, Shutdown runs no matter
// how Run exits.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}
	defer app.Shutdown(context.Background())

	if err := app.Start(ctx); err != nil {
		return err
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	}

	return nil
}

// Shutdown gracefully shuts down all components.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop API server first to stop accepting new requests
	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}
	}

	// Stop the backend workers and their descendants
	if app.supervisor != nil {
		app.supervisor.StopAll(shutdownCtx)
	}

	// Close event bus
	if app.eventBus != nil {
		app.eventBus.Close()
	}

	log.Println("Shutdown complete")
	return nil
}

// Stop signals the app to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
