package recovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// Checkpoint captures resumable progress for one project. CompletedStages
// lists stage names in completion order; Stage is the stage that was active
// when the checkpoint was written.
type Checkpoint struct {
	ProjectID       string    `json:"project_id"`
	Stage           string    `json:"stage"`
	CompletedStages []string  `json:"completed_stages"`
	Failures        []string  `json:"failures,omitempty"`
	RecoveryOptions []string  `json:"recovery_options,omitempty"`
	SavedAt         time.Time `json:"saved_at"`
}

// CheckpointStore persists checkpoints as JSON files under a state directory,
// one file per project.
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore creates the checkpoint directory if needed.
func NewCheckpointStore(stateDir string) (*CheckpointStore, error) {
	dir := filepath.Join(stateDir, "checkpoints")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &CheckpointStore{dir: dir}, nil
}

func (s *CheckpointStore) pathFor(projectID string) string {
	return filepath.Join(s.dir, projectID+".json")
}

// Save writes the checkpoint atomically so a crash mid-write never leaves a
// truncated file behind.
func (s *CheckpointStore) Save(checkpoint Checkpoint) error {
	if checkpoint.ProjectID == "" {
		return fmt.Errorf("checkpoint requires a project id")
	}
	if checkpoint.SavedAt.IsZero() {
		checkpoint.SavedAt = time.Now().UTC()
	}
	if len(checkpoint.RecoveryOptions) == 0 {
		checkpoint.RecoveryOptions = RecoveryOptionsFor(checkpoint.Stage)
	}

	payload, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := renameio.WriteFile(s.pathFor(checkpoint.ProjectID), payload, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint for a project. A missing checkpoint is reported
// through found, not an error.
func (s *CheckpointStore) Load(projectID string) (Checkpoint, bool, error) {
	payload, err := os.ReadFile(s.pathFor(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(payload, &checkpoint); err != nil {
		return Checkpoint{}, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return checkpoint, true, nil
}

// Remove deletes the checkpoint for a project. Missing files are fine.
func (s *CheckpointStore) Remove(projectID string) error {
	err := os.Remove(s.pathFor(projectID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}

// RecoveryOptionsFor lists what a user can do with a run interrupted at the
// given stage.
func RecoveryOptionsFor(stage string) []string {
	options := []string{"retry the current stage"}
	if stage == "audio" {
		options = append(options, "generate silent audio and continue")
	}
	options = append(options, "abandon the project")
	return options
}
