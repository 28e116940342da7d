package pipeline

import "time"

// Expected wall-clock duration per stage, used only for progress display.
// Media stages dominate; the table is deliberately pessimistic so progress
// rarely runs ahead of reality.
var expectedStageDurations = map[Stage]time.Duration{
	StageIdea:         15 * time.Second,
	StageScript:       45 * time.Second,
	StageCharacters:   20 * time.Second,
	StageImage:        2 * time.Minute,
	StageVideo:        8 * time.Minute,
	StageAudio:        90 * time.Second,
	StageIntegration:  time.Minute,
	StageFinalization: 30 * time.Second,
}

// stageFractionCap keeps an in-flight stage from ever reporting done.
const stageFractionCap = 0.95

// StageFraction estimates how far along an in-flight stage is from its
// elapsed time. The estimate never reaches 1.0; completion is reported by
// the stage actually finishing.
func StageFraction(stage Stage, elapsed time.Duration) float64 {
	expected := expectedStageDurations[stage]
	if expected <= 0 || elapsed <= 0 {
		return 0
	}
	fraction := float64(elapsed) / float64(expected)
	if fraction > stageFractionCap {
		return stageFractionCap
	}
	return fraction
}

// Overall combines completed-stage count with the current stage's fraction
// into a single 0..1 figure.
func Overall(completedStages int, currentFraction float64) float64 {
	total := len(stageNames)
	if completedStages >= total {
		return 1.0
	}
	if currentFraction < 0 {
		currentFraction = 0
	}
	if currentFraction > 1 {
		currentFraction = 1
	}
	return (float64(completedStages) + currentFraction) / float64(total)
}

// ETA estimates the remaining wall-clock time given the completed stages and
// the elapsed time of the in-flight stage.
func ETA(completedStages int, current Stage, currentElapsed time.Duration) time.Duration {
	var remaining time.Duration

	currentExpected := expectedStageDurations[current]
	if left := currentExpected - currentElapsed; left > 0 {
		remaining += left
	}

	for stage := current + 1; int(stage) < len(stageNames); stage++ {
		remaining += expectedStageDurations[stage]
	}
	return remaining
}
