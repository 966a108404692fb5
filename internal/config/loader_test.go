// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lattice.hjson")

	content := `{
  // comments are allowed
  app: {
    name: "myapp"
  }
  backend: {
    runner: "uv"
    main_module: "myapp.server.main"
    initdb_module: "myapp.server.db.init_db"
    port_timeout: "5s"
    env: {
      MYAPP_MODE: "desktop"
    }
  }
  server: {
    port: 9999
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loader := NewLoader()
	cfg, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "myapp", cfg.App.Name)
	assert.Equal(t, "myapp.server.main", cfg.Backend.MainModule)
	assert.Equal(t, "myapp.server.db.init_db", cfg.Backend.InitDBModule)
	assert.Equal(t, "5s", cfg.Backend.PortTimeout)
	assert.Equal(t, "desktop", cfg.Backend.Env["MYAPP_MODE"])
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoader_LoadMissingFile(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Load(context.Background(), "/nonexistent/lattice.hjson")
	assert.Error(t, err)
}

func TestLoader_LoadInvalidHJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.hjson")
	require.NoError(t, os.WriteFile(path, []byte("{ unterminated: ["), 0644))

	loader := NewLoader()
	_, err := loader.Load(context.Background(), path)
	assert.Error(t, err)
}

func TestLoader_LoadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lattice.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{ backend: { main_module: "x.main" } }`), 0644))

	loader := NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "lattice", cfg.App.Name)
	assert.Equal(t, "uv", cfg.Backend.Runner)
	assert.Equal(t, "x.main", cfg.Backend.MainModule)
	assert.Equal(t, "python", cfg.Backend.Marker)
	assert.Equal(t, "30s", cfg.Backend.PortTimeout)
	assert.Equal(t, "100ms", cfg.Backend.PortPoll)
	assert.Equal(t, "3s", cfg.Backend.StopGrace)
	assert.Equal(t, 1000, cfg.Backend.LogTailSize)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4820, cfg.Server.Port)
	assert.Equal(t, 10000, cfg.Events.History.MaxEvents)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "lattice", cfg.App.Name)
	assert.Equal(t, "uv", cfg.Backend.Runner)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("garbage", time.Minute))
}

func TestLoader_FindConfig(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	loader := NewLoader()

	_, err = loader.FindConfig()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "lattice.hjson"), []byte("{}"), 0644))
	found, err := loader.FindConfig()
	require.NoError(t, err)
	assert.Contains(t, found, "lattice.hjson")
}
