package timeline_test

import (
	"testing"

	"fabula/internal/timeline"
)

func TestValidateReportsAllProblems(t *testing.T) {
	tracks := []timeline.Track{
		{ID: "n1", Type: timeline.TrackNarration, Duration: -1.0, Volume: 1.3},
	}
	scenes := []timeline.Scene{
		{Index: 0, Duration: 5.0},
		{Index: 1, Duration: 0},
	}

	problems := timeline.Validate(tracks, scenes)
	if len(problems) != 4 {
		t.Fatalf("expected 4 problems (count, duration, volume, scene), got %d: %v",
			len(problems), problems)
	}
}

func TestValidateCleanInput(t *testing.T) {
	tracks := []timeline.Track{
		{ID: "n1", Type: timeline.TrackNarration, Duration: 5.0, Volume: 0.8},
	}
	scenes := []timeline.Scene{{Index: 0, Duration: 5.0}}

	if problems := timeline.Validate(tracks, scenes); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}
