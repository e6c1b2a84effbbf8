// Package dotdir manages the .livewire/ and ~/.livewire directories that hold
// config.toml, credentials.toml and recorded stream transcripts.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the livewire directory.
	dirName = ".livewire"

	// recordingsDir holds raw stream transcripts written by "livewire chat --record".
	recordingsDir = "recordings"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .livewire/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.livewire/ dir
//  3. Home ~/.livewire/ dir, created if missing
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating livewire directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// RecordingPath returns the path for a transcript named name inside the
// recordings/ subdirectory of the resolved target, creating it if needed.
func (m *Manager) RecordingPath(overrideDir, name string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(target, recordingsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating recordings directory %s: %w", dir, err)
	}

	return filepath.Join(dir, filepath.Base(name)), nil
}

// localDirExists checks whether a .livewire/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
