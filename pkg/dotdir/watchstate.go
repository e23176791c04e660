package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	watchStateFile = "watch.json"
)

// WatchState remembers which document each watched file was ingested as,
// so a restarted watcher replaces documents instead of duplicating them.
type WatchState struct {
	// Dir is the watched directory.
	Dir string `json:"dir"`

	// Documents maps absolute file paths to document IDs.
	Documents map[string]string `json:"documents"`
}

// LoadWatchState loads the watch state from a target .docrag/watch.json.
// Returns nil, nil if no state exists yet.
func (m *Manager) LoadWatchState(overrideDir string) (*WatchState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, watchStateFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading watch state: %w", err)
	}

	state := &WatchState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing watch state: %w", err)
	}
	if state.Documents == nil {
		state.Documents = map[string]string{}
	}

	return state, nil
}

// SaveWatchState persists the watch state to a target .docrag/watch.json.
func (m *Manager) SaveWatchState(state *WatchState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil watch state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling watch state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, watchStateFile), data, 0o600); err != nil {
		return fmt.Errorf("writing watch state: %w", err)
	}

	return nil
}

// ClearWatchState removes the watch state file. Returns nil if the file
// doesn't exist.
func (m *Manager) ClearWatchState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, watchStateFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing watch state: %w", err)
	}

	return nil
}
