package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"fabula/internal/services"
	"fabula/internal/story"
	"fabula/internal/timeline"
)

// State carries the working artifacts of one generation run between stages.
// It is persisted after every stage so an interrupted run can resume without
// regenerating anything already paid for.
type State struct {
	ProjectID  string                 `json:"project_id"`
	Premise    story.Premise          `json:"premise"`
	Script     story.Script           `json:"script"`
	Characters []story.Character      `json:"characters,omitempty"`
	Images     []services.Asset       `json:"images,omitempty"`
	Clips      []services.Asset       `json:"clips,omitempty"`
	Narration  []timeline.Track       `json:"narration,omitempty"`
	Music      *timeline.Track        `json:"music,omitempty"`
	Synced     []timeline.SyncedTrack `json:"synced,omitempty"`
	Timeline   timeline.Report        `json:"timeline"`
	Outputs    []string               `json:"outputs,omitempty"`
}

// StateStore persists pipeline state as one JSON file per project.
type StateStore struct {
	dir string
}

// NewStateStore creates the state directory if needed.
func NewStateStore(stateDir string) (*StateStore, error) {
	dir := filepath.Join(stateDir, "pipeline")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pipeline state directory: %w", err)
	}
	return &StateStore{dir: dir}, nil
}

func (s *StateStore) pathFor(projectID string) string {
	return filepath.Join(s.dir, projectID+".json")
}

// Save writes the state atomically.
func (s *StateStore) Save(state *State) error {
	if state.ProjectID == "" {
		return fmt.Errorf("pipeline state requires a project id")
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pipeline state: %w", err)
	}
	if err := renameio.WriteFile(s.pathFor(state.ProjectID), payload, 0o644); err != nil {
		return fmt.Errorf("write pipeline state: %w", err)
	}
	return nil
}

// Load reads the state for a project. A missing state is reported through
// found, not an error.
func (s *StateStore) Load(projectID string) (*State, bool, error) {
	payload, err := os.ReadFile(s.pathFor(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read pipeline state: %w", err)
	}
	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, false, fmt.Errorf("decode pipeline state: %w", err)
	}
	return &state, true, nil
}

// Remove deletes the state for a project. Missing files are fine.
func (s *StateStore) Remove(projectID string) error {
	err := os.Remove(s.pathFor(projectID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pipeline state: %w", err)
	}
	return nil
}
