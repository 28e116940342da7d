package timeline_test

import (
	"errors"
	"math"
	"testing"

	"fabula/internal/services"
	"fabula/internal/timeline"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSynchronizePlacesTracksSequentially(t *testing.T) {
	tracks := []timeline.Track{
		{ID: "n1", Type: timeline.TrackNarration, Duration: 5.0, Volume: 0.8},
		{ID: "n2", Type: timeline.TrackNarration, Duration: 6.0, Volume: 0.8},
	}
	scenes := []timeline.Scene{
		{Index: 0, Duration: 5.0},
		{Index: 1, Duration: 6.0},
	}

	synced, report, err := timeline.Synchronize(tracks, scenes, timeline.Options{})
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if report.AdjustedTracks != 0 {
		t.Fatalf("no durations drifted, got %d adjustments", report.AdjustedTracks)
	}
	if !almostEqual(synced[0].Start, 0) || !almostEqual(synced[0].End, 5.0) {
		t.Fatalf("first track placed at [%v, %v]", synced[0].Start, synced[0].End)
	}
	if !almostEqual(synced[1].Start, 5.0) || !almostEqual(synced[1].End, 11.0) {
		t.Fatalf("second track placed at [%v, %v]", synced[1].Start, synced[1].End)
	}
	for _, track := range synced {
		if !almostEqual(track.End, track.Start+track.Duration) {
			t.Fatalf("track %s end %v != start %v + duration %v",
				track.ID, track.End, track.Start, track.Duration)
		}
	}
}

func TestSynchronizeCorrectsDriftedDuration(t *testing.T) {
	tracks := []timeline.Track{
		{ID: "n1", Type: timeline.TrackNarration, Duration: 5.6, Volume: 0.8},
	}
	scenes := []timeline.Scene{{Index: 0, Duration: 5.0}}

	synced, report, err := timeline.Synchronize(tracks, scenes, timeline.Options{})
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if report.AdjustedTracks != 1 {
		t.Fatalf("drift of 0.6s must trigger adjustment, got %d", report.AdjustedTracks)
	}
	if !almostEqual(synced[0].Duration, 5.0) {
		t.Fatalf("duration = %v, want 5.0", synced[0].Duration)
	}
	if !almostEqual(synced[0].Adjustment, 5.0/5.6) {
		t.Fatalf("adjustment = %v, want %v", synced[0].Adjustment, 5.0/5.6)
	}
	if !almostEqual(synced[0].OriginalDuration, 5.6) {
		t.Fatalf("original duration = %v, want 5.6", synced[0].OriginalDuration)
	}
}

func TestSynchronizeToleratesSmallDrift(t *testing.T) {
	tracks := []timeline.Track{
		{ID: "n1", Type: timeline.TrackNarration, Duration: 5.15, Volume: 0.8},
	}
	scenes := []timeline.Scene{{Index: 0, Duration: 5.0}}

	synced, report, err := timeline.Synchronize(tracks, scenes, timeline.Options{})
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if report.AdjustedTracks != 0 {
		t.Fatal("drift within tolerance must not be corrected")
	}
	if !almostEqual(synced[0].Duration, 5.15) {
		t.Fatalf("duration = %v, want unchanged 5.15", synced[0].Duration)
	}
}

func TestSynchronizeCrossfadesAdjacentTracks(t *testing.T) {
	// Two 5-second tracks back to back: the crossfade is capped at 10% of the
	// shorter neighbor, so min(0.5 default, 0.5, 0.5) = 0.5.
	tracks := []timeline.Track{
		{ID: "n1", Type: timeline.TrackNarration, Duration: 5.0, Volume: 0.8},
		{ID: "n2", Type: timeline.TrackNarration, Duration: 5.0, Volume: 0.8},
	}
	scenes := []timeline.Scene{
		{Index: 0, Duration: 5.0},
		{Index: 1, Duration: 5.0},
	}

	synced, report, err := timeline.Synchronize(tracks, scenes, timeline.Options{})
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if len(report.Crossfades) != 1 {
		t.Fatalf("expected 1 crossfade, got %d", len(report.Crossfades))
	}
	if !almostEqual(report.Crossfades[0].Duration, 0.5) {
		t.Fatalf("crossfade = %v, want 0.5", report.Crossfades[0].Duration)
	}
	if !almostEqual(synced[0].FadeOut, 0.5) || !almostEqual(synced[1].FadeIn, 0.5) {
		t.Fatalf("fades not applied: out=%v in=%v", synced[0].FadeOut, synced[1].FadeIn)
	}
}

func TestSynchronizeCrossfadeBoundedByShortTrack(t *testing.T) {
	tracks := []timeline.Track{
		{ID: "n1", Type: timeline.TrackNarration, Duration: 2.0, Volume: 0.8},
		{ID: "n2", Type: timeline.TrackNarration, Duration: 8.0, Volume: 0.8},
	}
	scenes := []timeline.Scene{
		{Index: 0, Duration: 2.0},
		{Index: 1, Duration: 8.0},
	}

	_, report, err := timeline.Synchronize(tracks, scenes, timeline.Options{})
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if len(report.Crossfades) != 1 {
		t.Fatalf("expected 1 crossfade, got %d", len(report.Crossfades))
	}
	// 10% of the 2-second track caps the fade at 0.2.
	if !almostEqual(report.Crossfades[0].Duration, 0.2) {
		t.Fatalf("crossfade = %v, want 0.2", report.Crossfades[0].Duration)
	}
}

func TestSynchronizeRejectsCountMismatch(t *testing.T) {
	tracks := []timeline.Track{
		{ID: "n1", Type: timeline.TrackNarration, Duration: 5.0},
	}
	scenes := []timeline.Scene{
		{Index: 0, Duration: 5.0},
		{Index: 1, Duration: 5.0},
	}

	_, _, err := timeline.Synchronize(tracks, scenes, timeline.Options{})
	if err == nil {
		t.Fatal("expected count mismatch error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSynchronizeBalancesMusicVolume(t *testing.T) {
	tracks := []timeline.Track{
		{ID: "m1", Type: timeline.TrackMusic, Duration: 10.0, Volume: 0.9},
	}
	scenes := []timeline.Scene{{Index: 0, Duration: 10.0}}

	synced, report, err := timeline.Synchronize(tracks, scenes, timeline.Options{})
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if len(report.VolumeChanges) != 1 {
		t.Fatalf("expected 1 volume change, got %d", len(report.VolumeChanges))
	}
	// Music target is 0.3 but the change is clamped to 0.9/2.0 = 0.45.
	if !almostEqual(synced[0].Volume, 0.45) {
		t.Fatalf("volume = %v, want clamped 0.45", synced[0].Volume)
	}
}

func TestSynchronizeSkipsImperceptibleVolumeChange(t *testing.T) {
	tracks := []timeline.Track{
		{ID: "n1", Type: timeline.TrackNarration, Duration: 5.0, Volume: 0.78},
	}
	scenes := []timeline.Scene{{Index: 0, Duration: 5.0}}

	synced, report, err := timeline.Synchronize(tracks, scenes, timeline.Options{})
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if len(report.VolumeChanges) != 0 {
		t.Fatalf("0.78 -> 0.8 is below threshold, got %d changes", len(report.VolumeChanges))
	}
	if !almostEqual(synced[0].Volume, 0.78) {
		t.Fatalf("volume = %v, want untouched 0.78", synced[0].Volume)
	}
}
