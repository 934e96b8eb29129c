package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const recordingExt = ".sse"

// CreateRecording creates a new raw stream recording file under the
// recordings/ subdirectory of the target .aisearch/ directory. The file name
// is derived from now so recordings sort chronologically. The caller closes
// the returned file.
func (m *Manager) CreateRecording(overrideDir string, now time.Time) (*os.File, error) {
	dir, err := m.recordingsDir(overrideDir)
	if err != nil {
		return nil, err
	}

	name := now.UTC().Format("20060102T150405.000000000") + recordingExt
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating recording: %w", err)
	}
	return f, nil
}

// ListRecordings returns the absolute paths of all recordings, oldest first.
// Returns an empty slice when nothing has been recorded yet.
func (m *Manager) ListRecordings(overrideDir string) ([]string, error) {
	layout, err := m.Resolve(overrideDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(layout.Recordings)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading recordings: %w", err)
	}

	paths := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordingExt) {
			continue
		}
		paths = append(paths, filepath.Join(layout.Recordings, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// LatestRecording returns the path of the most recent recording.
func (m *Manager) LatestRecording(overrideDir string) (string, error) {
	paths, err := m.ListRecordings(overrideDir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", errors.New("no recordings found")
	}
	return paths[len(paths)-1], nil
}

func (m *Manager) recordingsDir(overrideDir string) (string, error) {
	layout, err := m.Resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(layout.Recordings, 0o755); err != nil {
		return "", fmt.Errorf("creating recordings directory: %w", err)
	}
	return layout.Recordings, nil
}
