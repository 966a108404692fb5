// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeRunner = `#!/bin/sh
if [ "$1" = "sync" ]; then
	exit 0
fi
( sleep 0.2; printf '%s' 54321 > "$LATTICE_TEST_PORTFILE" ) &
echo "serving"
exec sleep 30
`

func writeTestConfig(t *testing.T) string {
	t.Helper()

	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "fakerunner"), []byte(fakeRunner), 0755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	work := t.TempDir()
	portFile := filepath.Join(work, "backend.port")
	cfg := fmt.Sprintf(`{
  app: { name: "lattice-test" }
  backend: {
    runner: "fakerunner"
    main_module: "app.main"
    path: %q
    log_dir: %q
    port_file: %q
    port_timeout: "5s"
    port_poll: "50ms"
    stop_grace: "500ms"
    env: { LATTICE_TEST_PORTFILE: %q }
  }
}`, work, filepath.Join(work, "logs"), portFile, portFile)

	path := filepath.Join(work, "lattice.hjson")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func TestNewDefaults(t *testing.T) {
	a, err := New(Options{})
	require.NoError(t, err)
	defer a.eventBus.Close()

	assert.Equal(t, "lattice", a.config.App.Name)
	assert.Equal(t, "127.0.0.1", a.config.Server.Host)
	assert.Equal(t, 4820, a.config.Server.Port)
}

func TestNewHostPortOverride(t *testing.T) {
	a, err := New(Options{Host: "0.0.0.0", Port: 9999})
	require.NoError(t, err)
	defer a.eventBus.Close()

	assert.Equal(t, "0.0.0.0", a.config.Server.Host)
	assert.Equal(t, 9999, a.config.Server.Port)
}

func TestNewBadConfigPath(t *testing.T) {
	_, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.hjson")})
	assert.Error(t, err)
}

func TestAppLifecycle(t *testing.T) {
	a, err := New(Options{ConfigPath: writeTestConfig(t)})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))
	defer a.Shutdown(ctx)

	require.NoError(t, a.supervisor.StartAll(ctx))

	// Query the API the way the UI layer would.
	srv := httptest.NewServer(a.apiServer.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/backend/port")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Port int `json:"port"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 54321, body.Data.Port)

	urlResp, err := http.Get(srv.URL + "/api/v1/backend/url")
	require.NoError(t, err)
	defer urlResp.Body.Close()
	assert.Equal(t, http.StatusOK, urlResp.StatusCode)

	// Shutdown endpoint signals the run loop.
	shResp, err := http.Post(srv.URL+"/api/v1/shutdown", "application/json", nil)
	require.NoError(t, err)
	shResp.Body.Close()
	assert.Equal(t, http.StatusAccepted, shResp.StatusCode)

	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("shutdown request did not signal the run loop")
	}
}

func TestAppShutdownIdempotent(t *testing.T) {
	a, err := New(Options{ConfigPath: writeTestConfig(t)})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	require.NoError(t, a.Shutdown(ctx))
	a.Stop()
	a.Stop()
}
