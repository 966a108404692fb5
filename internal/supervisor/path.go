// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveBackendPath determines the working directory workers run in.
// Resolution order: explicit override, packaged resources
// (<resourceRoot>/backend), then an ancestor walk from resourceRoot
// looking for the project marker directory (dev checkouts). Every
// candidate must exist as a directory.
func ResolveBackendPath(override, resourceRoot, marker string) (string, error) {
	if override != "" {
		if !isDir(override) {
			return "", fmt.Errorf("backend path %s does not exist", override)
		}
		return override, nil
	}

	if resourceRoot == "" {
		resourceRoot = defaultResourceRoot()
	}

	if packaged := filepath.Join(resourceRoot, "backend"); isDir(packaged) {
		return packaged, nil
	}

	if marker == "" {
		marker = "python"
	}
	dir := resourceRoot
	for {
		if candidate := filepath.Join(dir, marker); isDir(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("backend directory not found: no %s/backend and no %s marker above it", resourceRoot, marker)
}

// defaultResourceRoot prefers the executable's directory, matching a
// packaged layout, and falls back to the current directory for
// go run style development.
func defaultResourceRoot() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			return filepath.Dir(resolved)
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
