// Package dotdir manages the .aisearch/ and ~/.aisearch directories.
//
// The directory holds config.toml and, when recording is enabled, raw
// response streams under recordings/.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName       = ".aisearch"
	configName    = "config.toml"
	recordingsDir = "recordings"
)

// Layout is a resolved .aisearch/ directory and the paths inside it.
// Only Root is guaranteed to exist; the others are created by their owners.
type Layout struct {
	Root       string
	Config     string
	Recordings string
}

// Manager resolves the .aisearch/ directory for the current process.
type Manager struct {
	getwd   func() (string, error)
	homeDir func() (string, error)
}

func NewManager() *Manager {
	return &Manager{getwd: os.Getwd, homeDir: os.UserHomeDir}
}

// Resolve picks the .aisearch/ directory, creates it if missing and returns
// its layout. An override wins, then ./.aisearch/ when it already exists,
// then ~/.aisearch/.
func (m *Manager) Resolve(overrideDir string) (Layout, error) {
	root, err := m.root(overrideDir)
	if err != nil {
		return Layout{}, err
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return Layout{}, fmt.Errorf("creating aisearch directory %s: %w", root, err)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return Layout{}, fmt.Errorf("resolving aisearch directory: %w", err)
	}

	return Layout{
		Root:       root,
		Config:     filepath.Join(root, configName),
		Recordings: filepath.Join(root, recordingsDir),
	}, nil
}

// Target returns the absolute path of the resolved .aisearch/ directory.
func (m *Manager) Target(overrideDir string) (string, error) {
	l, err := m.Resolve(overrideDir)
	return l.Root, err
}

func (m *Manager) root(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	if cwd, err := m.getwd(); err == nil {
		local := filepath.Join(cwd, dirName)
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			return local, nil
		}
	}

	home, err := m.homeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}
