package timeline

import "fmt"

// Validate checks tracks against scenes without mutating either. It reports
// every problem found rather than stopping at the first.
func Validate(tracks []Track, scenes []Scene) []string {
	var problems []string

	if len(tracks) != len(scenes) {
		problems = append(problems, fmt.Sprintf(
			"track count %d does not match scene count %d", len(tracks), len(scenes)))
	}

	for _, track := range tracks {
		if track.Duration <= 0 {
			problems = append(problems, fmt.Sprintf(
				"track %s has non-positive duration %.2f", track.ID, track.Duration))
		}
		if track.Volume < 0 || track.Volume > 1 {
			problems = append(problems, fmt.Sprintf(
				"track %s volume %.2f outside [0, 1]", track.ID, track.Volume))
		}
	}

	for _, scene := range scenes {
		if scene.Duration <= 0 {
			problems = append(problems, fmt.Sprintf(
				"scene %d has non-positive duration %.2f", scene.Index, scene.Duration))
		}
	}

	return problems
}
