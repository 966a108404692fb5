// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkWritesFile(t *testing.T) {
	dir := t.TempDir()
	w := launchShell(t, "echo alpha; echo beta >&2; echo gamma")

	sink := NewSink(dir, "backend", 100)
	go sink.Drain(w)
	require.True(t, sink.Wait(5*time.Second))

	data, err := os.ReadFile(filepath.Join(dir, "backend.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "alpha\n")
	assert.Contains(t, string(data), "beta\n")
	assert.Contains(t, string(data), "gamma\n")
}

func TestSinkAppendsAcrossLaunches(t *testing.T) {
	dir := t.TempDir()

	for _, msg := range []string{"first", "second"} {
		w := launchShell(t, "echo "+msg)
		sink := NewSink(dir, "backend", 100)
		go sink.Drain(w)
		require.True(t, sink.Wait(5*time.Second))
	}

	data, err := os.ReadFile(filepath.Join(dir, "backend.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestSinkTail(t *testing.T) {
	dir := t.TempDir()
	w := launchShell(t, "for i in 1 2 3 4 5; do echo line$i; done")

	sink := NewSink(dir, "backend", 100)
	go sink.Drain(w)
	require.True(t, sink.Wait(5*time.Second))

	assert.Equal(t, []string{"line4", "line5"}, sink.Tail(2))
	assert.Equal(t, []string{"line1", "line2", "line3", "line4", "line5"}, sink.Tail(0))
}

func TestSinkDegradesWithoutFile(t *testing.T) {
	// A directory occupying the log file path makes the open fail; the
	// sink must still drain into the tail.
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "backend.log"), 0755))

	w := launchShell(t, "echo survived")
	sink := NewSink(dir, "backend", 100)
	go sink.Drain(w)
	require.True(t, sink.Wait(5*time.Second))

	assert.Equal(t, []string{"survived"}, sink.Tail(0))
}

func TestLogTailWraps(t *testing.T) {
	tail := NewLogTail(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		tail.Write(s)
	}

	assert.Equal(t, 3, tail.Size())
	assert.Equal(t, []string{"c", "d", "e"}, tail.Lines(0))
	assert.Equal(t, []string{"e"}, tail.Lines(1))
	assert.Equal(t, []string{"c", "d", "e"}, tail.Lines(10))
}

func TestLogTailEmpty(t *testing.T) {
	tail := NewLogTail(3)
	assert.Empty(t, tail.Lines(0))
	assert.Equal(t, 0, tail.Size())
}
