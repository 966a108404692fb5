// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBackendPathOverride(t *testing.T) {
	dir := t.TempDir()
	path, err := ResolveBackendPath(dir, "", "python")
	require.NoError(t, err)
	assert.Equal(t, dir, path)
}

func TestResolveBackendPathOverrideMissing(t *testing.T) {
	_, err := ResolveBackendPath(filepath.Join(t.TempDir(), "nope"), "", "python")
	assert.Error(t, err)
}

func TestResolveBackendPathPackaged(t *testing.T) {
	root := t.TempDir()
	packaged := filepath.Join(root, "backend")
	require.NoError(t, os.MkdirAll(packaged, 0755))

	path, err := ResolveBackendPath("", root, "python")
	require.NoError(t, err)
	assert.Equal(t, packaged, path)
}

func TestResolveBackendPathMarkerWalk(t *testing.T) {
	// Marker sits two levels above the resource root, as in a dev
	// checkout where the binary runs from a nested build directory.
	root := t.TempDir()
	marker := filepath.Join(root, "python")
	nested := filepath.Join(root, "build", "debug")
	require.NoError(t, os.MkdirAll(marker, 0755))
	require.NoError(t, os.MkdirAll(nested, 0755))

	path, err := ResolveBackendPath("", nested, "python")
	require.NoError(t, err)
	assert.Equal(t, marker, path)
}

func TestResolveBackendPathPackagedWinsOverMarker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "backend"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "python"), 0755))

	path, err := ResolveBackendPath("", root, "python")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "backend"), path)
}

func TestResolveBackendPathNotFound(t *testing.T) {
	_, err := ResolveBackendPath("", t.TempDir(), "does-not-exist-marker")
	assert.Error(t, err)
}
