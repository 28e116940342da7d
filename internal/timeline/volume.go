package timeline

import "math"

// targetVolumes are the mix levels each track type is pulled toward.
var targetVolumes = map[TrackType]float64{
	TrackNarration: 0.8,
	TrackMusic:     0.3,
	TrackEffects:   0.5,
}

const fallbackTargetVolume = 0.5

// balanceVolumes pulls each track toward its type target, clamped so no
// track moves more than the configured adjustment factor from its original
// level. Changes below the apply threshold are dropped.
func balanceVolumes(tracks []SyncedTrack, opts Options, report *Report) {
	for i := range tracks {
		track := &tracks[i]
		target, ok := targetVolumes[track.Type]
		if !ok {
			target = fallbackTargetVolume
		}

		original := track.Volume
		if original <= 0 {
			continue
		}

		balanced := math.Max(original/opts.MaxVolumeAdjustment,
			math.Min(original*opts.MaxVolumeAdjustment, target))
		if math.Abs(balanced-original) <= volumeApplyThreshold {
			continue
		}

		track.Volume = balanced
		report.VolumeChanges = append(report.VolumeChanges, VolumeChange{
			TrackID: track.ID,
			From:    original,
			To:      balanced,
		})
	}
}
