// Package pipeline orchestrates the story-video generation workflow: stage
// sequencing, pause/resume control, budget gating, checkpointing, and
// assembly of the final result.
package pipeline

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage identifies one step of the generation workflow. Stages always
// execute in declaration order.
type Stage int

const (
	StageIdea Stage = iota
	StageScript
	StageCharacters
	StageImage
	StageVideo
	StageAudio
	StageIntegration
	StageFinalization
)

var stageNames = [...]string{
	StageIdea:         "idea",
	StageScript:       "script",
	StageCharacters:   "characters",
	StageImage:        "image",
	StageVideo:        "video",
	StageAudio:        "audio",
	StageIntegration:  "integration",
	StageFinalization: "finalization",
}

// Stages returns every stage in execution order.
func Stages() []Stage {
	out := make([]Stage, len(stageNames))
	for i := range stageNames {
		out[i] = Stage(i)
	}
	return out
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

var titleCaser = cases.Title(language.English)

// DisplayName returns the stage name formatted for user-facing output.
func (s Stage) DisplayName() string {
	return titleCaser.String(s.String())
}

// StageFromName resolves a stage by its lowercase name.
func StageFromName(name string) (Stage, bool) {
	for i, candidate := range stageNames {
		if candidate == name {
			return Stage(i), true
		}
	}
	return 0, false
}
