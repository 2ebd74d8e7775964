package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// FlowConfig marks the root of a Flow project.
	FlowConfig = ".flowconfig"
	// SettingsFile is the per-project flowdiag configuration file.
	SettingsFile = ".flowdiag.toml"
)

// FindMarker walks up from startDir to locate a file named marker.
// startDir may also be a file path, in which case the search begins in its
// directory.
func FindMarker(startDir, marker string) (path string, ok bool, err error) {
	if marker == "" {
		return "", false, fmt.Errorf("empty project marker")
	}
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if st, err := os.Stat(dir); err == nil && !st.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, marker)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, os.ErrPermission) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FindProjectRoot returns the directory containing marker, if any.
func FindProjectRoot(startDir, marker string) (root string, ok bool, err error) {
	markerPath, ok, err := FindMarker(startDir, marker)
	if err != nil || !ok {
		return "", ok, err
	}
	return filepath.Dir(markerPath), true, nil
}
