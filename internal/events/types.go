// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the event bus for Lattice.
package events

import (
	"context"
	"time"
)

// Event represents an immutable event record.
type Event struct {
	ID        string                 `json:"id"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Session   string                 `json:"session"`
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter for querying event history.
type EventFilter struct {
	Types   []string  // Event types to match (supports wildcards)
	Session string    // Filter by supervisor session
	Since   time.Time // Events after this time
	Until   time.Time // Events before this time
	Limit   int       // Maximum events to return
}

// EventBus is the core event pub/sub system.
type EventBus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers an async handler with buffered channel.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter.
	History(filter EventFilter) ([]Event, error)

	// SetDefaultSession sets the default session for events that don't specify one.
	SetDefaultSession(session string)

	// Close shuts down the event bus gracefully.
	Close() error
}

// Common event types
const (
	// Backend lifecycle events
	EventBackendSyncing  = "backend.syncing"  // Dependency sync started
	EventBackendStarted  = "backend.started"  // Main worker spawned
	EventBackendReady    = "backend.ready"    // Port discovered
	EventBackendStopping = "backend.stopping" // Shutdown initiated
	EventBackendStopped  = "backend.stopped"  // All workers terminated
	EventBackendFailed   = "backend.failed"   // Startup did not reach ready

	// Worker events
	EventWorkerSpawned = "worker.spawned"
	EventWorkerExited  = "worker.exited"

	// Host events
	EventHostShutdownRequested = "host.shutdown.requested"
)
