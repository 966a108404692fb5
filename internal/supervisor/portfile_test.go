// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempPortFile(t *testing.T) *PortFile {
	t.Helper()
	return NewPortFileAt(filepath.Join(t.TempDir(), "backend.port"))
}

func TestPortFileReadAbsent(t *testing.T) {
	pf := tempPortFile(t)
	port, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, 0, port)
}

func TestPortFileReadValid(t *testing.T) {
	pf := tempPortFile(t)
	require.NoError(t, os.WriteFile(pf.Path(), []byte("8080\n"), 0644))

	port, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, 8080, port)
}

func TestPortFileReadMalformed(t *testing.T) {
	pf := tempPortFile(t)

	for _, contents := range []string{"", "abc", "0", "-1", "70000", "80 80"} {
		require.NoError(t, os.WriteFile(pf.Path(), []byte(contents), 0644))
		port, err := pf.Read()
		require.NoError(t, err, "contents %q", contents)
		assert.Equal(t, 0, port, "contents %q should read as absent", contents)
	}
}

func TestPortFileClear(t *testing.T) {
	pf := tempPortFile(t)
	require.NoError(t, os.WriteFile(pf.Path(), []byte("8080"), 0644))

	require.NoError(t, pf.Clear())
	_, err := os.Stat(pf.Path())
	assert.True(t, os.IsNotExist(err))

	// Clearing an absent file is fine.
	require.NoError(t, pf.Clear())
}

func TestPortFileWaitDelayedWrite(t *testing.T) {
	pf := tempPortFile(t)

	go func() {
		time.Sleep(200 * time.Millisecond)
		os.WriteFile(pf.Path(), []byte("54321\n"), 0644)
	}()

	start := time.Now()
	port, err := pf.Wait(context.Background(), 5*time.Second, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 54321, port)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPortFileWaitTimeout(t *testing.T) {
	pf := tempPortFile(t)

	start := time.Now()
	_, err := pf.Wait(context.Background(), 300*time.Millisecond, 50*time.Millisecond)
	elapsed := time.Since(start)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.GreaterOrEqual(t, te.Elapsed, 300*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestPortFileWaitMalformedThenValid(t *testing.T) {
	pf := tempPortFile(t)
	require.NoError(t, os.WriteFile(pf.Path(), []byte("garbage"), 0644))

	go func() {
		time.Sleep(200 * time.Millisecond)
		os.WriteFile(pf.Path(), []byte("9000"), 0644)
	}()

	port, err := pf.Wait(context.Background(), 5*time.Second, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 9000, port)
}

func TestPortFileWaitContextCanceled(t *testing.T) {
	pf := tempPortFile(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := pf.Wait(ctx, 10*time.Second, 50*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPortFileWaitImmediate(t *testing.T) {
	pf := tempPortFile(t)
	require.NoError(t, os.WriteFile(pf.Path(), []byte("7777"), 0644))

	port, err := pf.Wait(context.Background(), time.Second, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 7777, port)
}
