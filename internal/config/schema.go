// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config defines the Lattice configuration schema and loader.
package config

import (
	"time"
)

// Config is the top-level configuration.
type Config struct {
	App     AppConfig     `json:"app"`
	Backend BackendConfig `json:"backend"`
	Server  ServerConfig  `json:"server"`
	Events  EventsConfig  `json:"events"`
}

// AppConfig holds application identity settings. The name determines the
// per-user config directory that the port file lives under.
type AppConfig struct {
	Name string `json:"name"`
}

// BackendConfig describes the supervised backend.
type BackendConfig struct {
	// Runner is the external task runner binary (default "uv").
	Runner string `json:"runner"`

	// MainModule is the long-running backend server module, launched as
	// "<runner> run -m <module>".
	MainModule string `json:"main_module"`

	// InitDBModule, if set, is run to completion before the main module.
	InitDBModule string `json:"initdb_module"`

	// EnvFile, if set, is passed to the runner as "--env-file <path>".
	EnvFile string `json:"env_file"`

	// Path overrides backend path resolution. When empty the path is
	// resolved from ResourceRoot and the project marker.
	Path string `json:"path"`

	// ResourceRoot is where a packaged build keeps its resources. A
	// "backend" directory underneath it wins over the marker walk.
	ResourceRoot string `json:"resource_root"`

	// Marker is the directory name that identifies the project root when
	// walking ancestors of ResourceRoot (default "python").
	Marker string `json:"marker"`

	// LogDir overrides the log directory (default: user cache dir).
	LogDir string `json:"log_dir"`

	// PortFile overrides the port advertisement file path. Default is
	// backend.port under the app's per-user config directory.
	PortFile string `json:"port_file"`

	// Env holds extra environment variables for spawned workers.
	Env map[string]string `json:"env"`

	// PortTimeout bounds port discovery (default "30s").
	PortTimeout string `json:"port_timeout"`

	// PortPoll is the port file poll interval (default "100ms").
	PortPoll string `json:"port_poll"`

	// StopGrace is the window between the graceful and forceful
	// termination phases (default "3s").
	StopGrace string `json:"stop_grace"`

	// LogTailSize is the in-memory log tail capacity per worker.
	LogTailSize int `json:"log_tail_size"`
}

// ServerConfig holds the query API server settings.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	History EventHistoryConfig `json:"history"`
}

// EventHistoryConfig bounds event history retention.
type EventHistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// ParseDuration parses a duration string, returning def on empty or
// malformed input.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
