// Package checkpoint persists pipeline run state to disk after every step so
// an interrupted run can resume without repeating completed work.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// ErrNotFound reports that no checkpoint exists for a run ID.
var ErrNotFound = errors.New("checkpoint not found")

// Store reads and writes run checkpoints as JSON files, one per run.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// Save writes the run state atomically: the JSON goes to a temp file first
// and is renamed into place, so a crash mid-write never corrupts the
// previous checkpoint.
func (s *Store) Save(run *types.PipelineRun) error {
	if run.RunID == "" {
		return fmt.Errorf("cannot checkpoint a run without an ID")
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint for run %s: %w", run.RunID, err)
	}

	tmp, err := os.CreateTemp(s.dir, run.RunID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint for run %s: %w", run.RunID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint for run %s: %w", run.RunID, err)
	}
	if err := os.Rename(tmpName, s.path(run.RunID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize checkpoint for run %s: %w", run.RunID, err)
	}
	return nil
}

// Load reads the checkpoint for a run ID.
func (s *Store) Load(runID string) (*types.PipelineRun, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read checkpoint for run %s: %w", runID, err)
	}

	var run types.PipelineRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint for run %s: %w", runID, err)
	}
	if run.Artifacts == nil {
		run.Artifacts = map[string]string{}
	}
	return &run, nil
}

// List returns the run IDs of every stored checkpoint, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	var runIDs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		runIDs = append(runIDs, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(runIDs)
	return runIDs, nil
}

// Delete removes a run's checkpoint. Missing checkpoints are not an error.
func (s *Store) Delete(runID string) error {
	err := os.Remove(s.path(runID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint for run %s: %w", runID, err)
	}
	return nil
}
