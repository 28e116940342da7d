// Package story holds the narrative artifacts passed between generation
// stages: expanded premises, scene scripts, and character sheets.
package story

import "strings"

// Premise is the expanded form of the user's one-line idea.
type Premise struct {
	Idea     string
	Synopsis string
	Genre    string
	Tone     string
}

// SceneScript is one scene of the composed script. DurationSeconds is the
// planned scene length the downstream media must fit.
type SceneScript struct {
	Index           int
	Narration       string
	VisualPrompt    string
	DurationSeconds float64
}

// Script is the full scene-by-scene script for a project.
type Script struct {
	Title  string
	Scenes []SceneScript
}

// TotalDuration sums the planned scene durations.
func (s Script) TotalDuration() float64 {
	var total float64
	for _, scene := range s.Scenes {
		total += scene.DurationSeconds
	}
	return total
}

// NarrationCharacters counts the characters of narration text across all
// scenes, used for speech cost estimation.
func (s Script) NarrationCharacters() int {
	var total int
	for _, scene := range s.Scenes {
		total += len(scene.Narration)
	}
	return total
}

// Character is one recurring figure extracted from the script. Description
// seeds the image prompts so the figure stays visually consistent across
// scenes.
type Character struct {
	Name        string
	Description string
	Role        string
}

// PromptFor builds an image prompt for a scene, prefixing the visual prompt
// with the descriptions of any characters it mentions.
func PromptFor(scene SceneScript, characters []Character) string {
	var parts []string
	for _, character := range characters {
		if character.Name == "" {
			continue
		}
		if strings.Contains(scene.VisualPrompt, character.Name) ||
			strings.Contains(scene.Narration, character.Name) {
			parts = append(parts, character.Name+": "+character.Description)
		}
	}
	parts = append(parts, scene.VisualPrompt)
	return strings.Join(parts, ". ")
}
