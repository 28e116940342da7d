// Package project persists generation projects: their lifecycle status,
// stage progress, artifacts, and accumulated cost.
package project

import (
	"time"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
)

// Project is one story-video generation run.
type Project struct {
	ID              string
	Title           string
	Idea            string
	Status          Status
	SceneCount      int
	CurrentStage    string
	CompletedStages []string
	TotalCost       float64
	Artifacts       map[string]string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasCompleted reports whether the named stage finished in this project.
func (p *Project) HasCompleted(stage string) bool {
	for _, done := range p.CompletedStages {
		if done == stage {
			return true
		}
	}
	return false
}

// MarkStageDone appends the stage to the completed list if not already there
// and advances the current stage marker.
func (p *Project) MarkStageDone(stage string) {
	if !p.HasCompleted(stage) {
		p.CompletedStages = append(p.CompletedStages, stage)
	}
	p.CurrentStage = stage
}

// SetArtifact records a produced artifact location under a stable key.
func (p *Project) SetArtifact(key, location string) {
	if p.Artifacts == nil {
		p.Artifacts = make(map[string]string)
	}
	p.Artifacts[key] = location
}
