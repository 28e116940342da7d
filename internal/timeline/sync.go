package timeline

import (
	"fmt"
	"math"

	"fabula/internal/services"
)

// TrackType classifies an audio track for volume balancing.
type TrackType string

const (
	TrackNarration TrackType = "narration"
	TrackMusic     TrackType = "music"
	TrackEffects   TrackType = "effects"
)

// Track is one generated audio clip prior to synchronization. Duration and
// Volume come from the generating service.
type Track struct {
	ID       string
	Type     TrackType
	Location string
	Duration float64
	Volume   float64
}

// Scene is one slot of the fixed timeline the tracks must fit.
type Scene struct {
	Index    int
	Duration float64
}

// Options tunes the synchronizer. Zero values fall back to repository
// defaults.
type Options struct {
	MaxTimingDifference float64
	DefaultCrossfade    float64
	MaxVolumeAdjustment float64
}

const (
	defaultMaxTimingDifference = 0.2
	defaultCrossfade           = 0.5
	defaultMaxVolumeAdjustment = 2.0

	// crossfadeShare caps a crossfade at this fraction of each neighbor.
	crossfadeShare = 0.1
	// volumeApplyThreshold suppresses imperceptible volume changes.
	volumeApplyThreshold = 0.05
)

func (o Options) withDefaults() Options {
	if o.MaxTimingDifference <= 0 {
		o.MaxTimingDifference = defaultMaxTimingDifference
	}
	if o.DefaultCrossfade <= 0 {
		o.DefaultCrossfade = defaultCrossfade
	}
	if o.MaxVolumeAdjustment < 1 {
		o.MaxVolumeAdjustment = defaultMaxVolumeAdjustment
	}
	return o
}

// SyncedTrack is a track placed on the timeline. End always equals
// Start + Duration after adjustment.
type SyncedTrack struct {
	Track
	Start            float64
	End              float64
	OriginalDuration float64
	Adjustment       float64
	FadeIn           float64
	FadeOut          float64
}

// TimingIssue records one duration correction.
type TimingIssue struct {
	TrackID    string
	SceneIndex int
	Generated  float64
	Target     float64
	Adjustment float64
}

// VolumeChange records one applied volume balance.
type VolumeChange struct {
	TrackID string
	From    float64
	To      float64
}

// Crossfade records one overlap between adjacent tracks.
type Crossfade struct {
	FromTrackID string
	ToTrackID   string
	Duration    float64
}

// Report summarizes one synchronization run.
type Report struct {
	TotalTracks    int
	AdjustedTracks int
	TimingIssues   []TimingIssue
	VolumeChanges  []VolumeChange
	Crossfades     []Crossfade
}

// Synchronize places each track against its scene, corrects durations that
// drift past the timing tolerance, balances volumes, and applies crossfades
// between adjacent tracks. The inputs are never mutated.
func Synchronize(tracks []Track, scenes []Scene, opts Options) ([]SyncedTrack, Report, error) {
	if len(tracks) != len(scenes) {
		return nil, Report{}, services.Wrap(
			services.ErrValidation, "audio", "synchronize",
			fmt.Sprintf("track count %d does not match scene count %d", len(tracks), len(scenes)),
			nil,
		)
	}

	opts = opts.withDefaults()
	report := Report{TotalTracks: len(tracks)}
	synced := make([]SyncedTrack, 0, len(tracks))

	cursor := 0.0
	for i, track := range tracks {
		target := scenes[i].Duration
		placed := SyncedTrack{
			Track:            track,
			Start:            cursor,
			OriginalDuration: track.Duration,
			Adjustment:       1.0,
		}

		if math.Abs(target-track.Duration) > opts.MaxTimingDifference {
			placed.Adjustment = target / track.Duration
			placed.Duration = target
			report.AdjustedTracks++
			report.TimingIssues = append(report.TimingIssues, TimingIssue{
				TrackID:    track.ID,
				SceneIndex: scenes[i].Index,
				Generated:  track.Duration,
				Target:     target,
				Adjustment: placed.Adjustment,
			})
		}

		placed.End = placed.Start + placed.Duration
		cursor = placed.End
		synced = append(synced, placed)
	}

	balanceVolumes(synced, opts, &report)
	applyCrossfades(synced, opts, &report)

	return synced, report, nil
}

// applyCrossfades scans adjacent pairs and overlaps them when the gap between
// one track's end and the next's start is smaller than the configured
// crossfade duration.
func applyCrossfades(tracks []SyncedTrack, opts Options, report *Report) {
	for i := 0; i+1 < len(tracks); i++ {
		current := &tracks[i]
		next := &tracks[i+1]

		gap := next.Start - current.End
		if math.Abs(gap) >= opts.DefaultCrossfade {
			continue
		}

		duration := math.Min(opts.DefaultCrossfade, math.Min(
			current.Duration*crossfadeShare,
			next.Duration*crossfadeShare,
		))
		if duration <= 0 {
			continue
		}

		current.FadeOut = duration
		next.FadeIn = duration
		report.Crossfades = append(report.Crossfades, Crossfade{
			FromTrackID: current.ID,
			ToTrackID:   next.ID,
			Duration:    duration,
		})
	}
}
