package story_test

import (
	"strings"
	"testing"

	"fabula/internal/story"
)

func TestScriptTotals(t *testing.T) {
	script := story.Script{
		Title: "The Lighthouse",
		Scenes: []story.SceneScript{
			{Index: 0, Narration: "A storm gathers.", DurationSeconds: 5},
			{Index: 1, Narration: "The keeper climbs.", DurationSeconds: 7.5},
		},
	}
	if got := script.TotalDuration(); got != 12.5 {
		t.Fatalf("total duration = %v, want 12.5", got)
	}
	want := len("A storm gathers.") + len("The keeper climbs.")
	if got := script.NarrationCharacters(); got != want {
		t.Fatalf("narration characters = %d, want %d", got, want)
	}
}

func TestPromptForIncludesMentionedCharacters(t *testing.T) {
	scene := story.SceneScript{
		Narration:    "Mara lights the lamp.",
		VisualPrompt: "A lighthouse interior at dusk",
	}
	characters := []story.Character{
		{Name: "Mara", Description: "a weathered keeper in an oilskin coat"},
		{Name: "Tomas", Description: "a young sailor"},
	}

	prompt := story.PromptFor(scene, characters)
	if !strings.Contains(prompt, "weathered keeper") {
		t.Fatalf("prompt should include Mara's description, got %q", prompt)
	}
	if strings.Contains(prompt, "young sailor") {
		t.Fatalf("prompt should not include unmentioned Tomas, got %q", prompt)
	}
	if !strings.HasSuffix(prompt, "A lighthouse interior at dusk") {
		t.Fatalf("prompt should end with the visual prompt, got %q", prompt)
	}
}
