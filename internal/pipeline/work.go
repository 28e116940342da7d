package pipeline

import (
	"context"
	"fmt"
	"strings"

	"fabula/internal/budget"
	"fabula/internal/logging"
	"fabula/internal/recovery"
	"fabula/internal/services"
	"fabula/internal/story"
	"fabula/internal/timeline"
)

// TextService produces the narrative artifacts.
type TextService interface {
	ExpandIdea(ctx context.Context, idea string) (story.Premise, error)
	ComposeScript(ctx context.Context, premise story.Premise, sceneCount int) (story.Script, error)
	AnalyzeCharacters(ctx context.Context, script story.Script) ([]story.Character, error)
}

// ImageService renders scene keyframes.
type ImageService interface {
	Generate(ctx context.Context, prompt, quality string) (services.Asset, error)
}

// VideoService animates keyframes into clips.
type VideoService interface {
	Animate(ctx context.Context, imageLocation, prompt string, durationSeconds float64) (services.Asset, error)
}

// AudioService synthesizes narration and background music.
type AudioService interface {
	Speak(ctx context.Context, text string) (services.Asset, error)
	Compose(ctx context.Context, prompt string, durationSeconds float64) (services.Asset, error)
}

// Assumed characters-per-token ratio for text cost estimates.
const charactersPerToken = 4

// plannedOperations estimates the billable work the stage is about to do, for
// the budget check that gates it. Local stages plan nothing.
func (c *Controller) plannedOperations(stage Stage, state *State) []budget.Operation {
	switch stage {
	case StageIdea:
		return []budget.Operation{{
			Kind:        budget.KindText,
			Model:       c.cfg.Text.Model,
			InputUnits:  float64(len(state.Premise.Idea)) / charactersPerToken,
			OutputUnits: 600,
		}}
	case StageScript:
		return []budget.Operation{{
			Kind:        budget.KindText,
			Model:       c.cfg.Text.Model,
			InputUnits:  float64(len(state.Premise.Synopsis)) / charactersPerToken,
			OutputUnits: float64(c.sceneCount() * 200),
			Complexity:  budget.ComplexityMedium,
		}}
	case StageCharacters:
		return []budget.Operation{{
			Kind:        budget.KindText,
			Model:       c.cfg.Text.Model,
			InputUnits:  float64(state.Script.NarrationCharacters()) / charactersPerToken,
			OutputUnits: 400,
		}}
	case StageImage:
		ops := make([]budget.Operation, 0, len(state.Script.Scenes))
		for range state.Script.Scenes {
			ops = append(ops, budget.Operation{
				Kind:        budget.KindImage,
				Model:       c.cfg.Image.Model,
				OutputUnits: 1,
				Complexity:  qualityComplexity(c.cfg.Generation.Quality),
			})
		}
		return ops
	case StageVideo:
		ops := make([]budget.Operation, 0, len(state.Script.Scenes))
		for _, scene := range state.Script.Scenes {
			ops = append(ops, budget.Operation{
				Kind:        budget.KindVideo,
				Model:       c.cfg.Video.Model,
				OutputUnits: scene.DurationSeconds,
				Complexity:  qualityComplexity(c.cfg.Generation.Quality),
			})
		}
		return ops
	case StageAudio:
		return []budget.Operation{
			{
				Kind:       budget.KindSpeech,
				Model:      c.cfg.Audio.Model,
				InputUnits: float64(state.Script.NarrationCharacters()),
			},
			{
				Kind:        budget.KindMusic,
				Model:       c.cfg.Audio.MusicModel,
				OutputUnits: state.Script.TotalDuration(),
			},
		}
	default:
		return nil
	}
}

func qualityComplexity(quality string) budget.Complexity {
	switch quality {
	case "high":
		return budget.ComplexityHigh
	case "standard":
		return budget.ComplexityMedium
	default:
		return budget.ComplexityLow
	}
}

// runStage executes one stage's work against the live state.
func (c *Controller) runStage(ctx context.Context, stage Stage, state *State) error {
	switch stage {
	case StageIdea:
		return c.runIdea(ctx, state)
	case StageScript:
		return c.runScript(ctx, state)
	case StageCharacters:
		return c.runCharacters(ctx, state)
	case StageImage:
		return c.runImages(ctx, state)
	case StageVideo:
		return c.runVideos(ctx, state)
	case StageAudio:
		return c.runAudio(ctx, state)
	case StageIntegration:
		return c.runIntegration(ctx, state)
	case StageFinalization:
		return c.runFinalization(ctx, state)
	default:
		return fmt.Errorf("unknown stage %d", int(stage))
	}
}

func (c *Controller) supervised(ctx context.Context, state *State, stage Stage, service, operation string, op *budget.Operation, work func(ctx context.Context) error) error {
	if proceed, err := c.coordinator.Health().Gate(service); err != nil {
		return err
	} else if !proceed {
		c.noteWarning(fmt.Sprintf("%s service unavailable, skipping %s", service, operation))
		return nil
	}

	ctx = services.WithProjectID(ctx, state.ProjectID)
	ctx = services.WithStage(ctx, stage.String())
	ctx = services.WithService(ctx, service)
	logging.WithContext(ctx, c.logger).Debug("dispatching operation", logging.String("operation", operation))

	unit := recovery.Unit{
		Operation: operation,
		Service:   service,
		ProjectID: state.ProjectID,
		Stage:     stage.String(),
	}
	outcome, err := c.coordinator.Run(ctx, unit, work)
	if err != nil {
		return err
	}
	c.countCalls(outcome.Attempts)
	if outcome.Status == recovery.OutcomeFallback && outcome.Suggestion != "" {
		c.noteWarning(fmt.Sprintf("%s: %s", operation, outcome.Suggestion))
	}
	if op != nil && outcome.Status == recovery.OutcomeCompleted {
		cost := budget.EstimateCost(*op)
		if trackErr := c.governor.Track(ctx, *op, cost, service); trackErr != nil {
			return trackErr
		}
	}
	return nil
}

func (c *Controller) runIdea(ctx context.Context, state *State) error {
	op := c.plannedOperations(StageIdea, state)[0]
	return c.supervised(ctx, state, StageIdea, "text", "expand-idea", &op, func(ctx context.Context) error {
		premise, err := c.text.ExpandIdea(ctx, state.Premise.Idea)
		if err != nil {
			return err
		}
		state.Premise = premise
		return nil
	})
}

func (c *Controller) runScript(ctx context.Context, state *State) error {
	op := c.plannedOperations(StageScript, state)[0]
	return c.supervised(ctx, state, StageScript, "text", "compose-script", &op, func(ctx context.Context) error {
		script, err := c.text.ComposeScript(ctx, state.Premise, c.sceneCount())
		if err != nil {
			return err
		}
		if len(script.Scenes) > c.cfg.Generation.MaxScenes {
			script.Scenes = script.Scenes[:c.cfg.Generation.MaxScenes]
		}
		state.Script = script
		return nil
	})
}

func (c *Controller) runCharacters(ctx context.Context, state *State) error {
	op := c.plannedOperations(StageCharacters, state)[0]
	return c.supervised(ctx, state, StageCharacters, "text", "analyze-characters", &op, func(ctx context.Context) error {
		characters, err := c.text.AnalyzeCharacters(ctx, state.Script)
		if err != nil {
			return err
		}
		state.Characters = characters
		return nil
	})
}

func (c *Controller) runImages(ctx context.Context, state *State) error {
	if state.Images == nil {
		state.Images = make([]services.Asset, len(state.Script.Scenes))
	}
	for i, scene := range state.Script.Scenes {
		if state.Images[i].Location != "" {
			continue
		}
		scene := scene
		index := i
		op := budget.Operation{
			Kind:        budget.KindImage,
			Model:       c.cfg.Image.Model,
			OutputUnits: 1,
			Complexity:  qualityComplexity(c.cfg.Generation.Quality),
		}
		prompt := story.PromptFor(scene, state.Characters)
		err := c.supervised(ctx, state, StageImage, "image",
			fmt.Sprintf("generate-image-%d", index), &op,
			func(ctx context.Context) error {
				asset, err := c.image.Generate(ctx, prompt, c.cfg.Generation.Quality)
				if err != nil {
					return err
				}
				state.Images[index] = asset
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) runVideos(ctx context.Context, state *State) error {
	if state.Clips == nil {
		state.Clips = make([]services.Asset, len(state.Script.Scenes))
	}
	for i, scene := range state.Script.Scenes {
		if state.Clips[i].Location != "" {
			continue
		}
		if state.Images[i].Location == "" {
			return services.Wrap(services.ErrValidation, "video", "animate",
				fmt.Sprintf("scene %d has no keyframe image", i), nil)
		}
		scene := scene
		index := i
		op := budget.Operation{
			Kind:        budget.KindVideo,
			Model:       c.cfg.Video.Model,
			OutputUnits: scene.DurationSeconds,
			Complexity:  qualityComplexity(c.cfg.Generation.Quality),
		}
		err := c.supervised(ctx, state, StageVideo, "video",
			fmt.Sprintf("animate-scene-%d", index), &op,
			func(ctx context.Context) error {
				asset, err := c.video.Animate(ctx, state.Images[index].Location, scene.VisualPrompt, scene.DurationSeconds)
				if err != nil {
					return err
				}
				state.Clips[index] = asset
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) runAudio(ctx context.Context, state *State) error {
	if state.Narration == nil {
		state.Narration = make([]timeline.Track, len(state.Script.Scenes))
	}
	for i, scene := range state.Script.Scenes {
		if state.Narration[i].ID != "" {
			continue
		}
		scene := scene
		index := i
		op := budget.Operation{
			Kind:       budget.KindSpeech,
			Model:      c.cfg.Audio.Model,
			InputUnits: float64(len(scene.Narration)),
		}
		err := c.supervised(ctx, state, StageAudio, "audio",
			fmt.Sprintf("narrate-scene-%d", index), &op,
			func(ctx context.Context) error {
				asset, err := c.audio.Speak(ctx, scene.Narration)
				if err != nil {
					return err
				}
				state.Narration[index] = timeline.Track{
					ID:       fmt.Sprintf("narration-%d", index),
					Type:     timeline.TrackNarration,
					Location: asset.Location,
					Duration: asset.DurationSeconds,
					Volume:   0.8,
				}
				return nil
			})
		if err != nil {
			return err
		}
	}

	if state.Music == nil {
		op := budget.Operation{
			Kind:        budget.KindMusic,
			Model:       c.cfg.Audio.MusicModel,
			OutputUnits: state.Script.TotalDuration(),
		}
		prompt := musicPrompt(state.Premise)
		err := c.supervised(ctx, state, StageAudio, "audio", "compose-music", &op,
			func(ctx context.Context) error {
				asset, err := c.audio.Compose(ctx, prompt, state.Script.TotalDuration())
				if err != nil {
					return err
				}
				state.Music = &timeline.Track{
					ID:       "music",
					Type:     timeline.TrackMusic,
					Location: asset.Location,
					Duration: asset.DurationSeconds,
					Volume:   0.5,
				}
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func musicPrompt(premise story.Premise) string {
	parts := []string{"instrumental background music"}
	if premise.Genre != "" {
		parts = append(parts, premise.Genre)
	}
	if premise.Tone != "" {
		parts = append(parts, premise.Tone+" mood")
	}
	return strings.Join(parts, ", ")
}

// runIntegration reconciles the narration tracks against the scene timeline.
// Missing narration tracks (skipped after audio degradation) are dropped
// with their scenes rather than failing the whole run.
func (c *Controller) runIntegration(_ context.Context, state *State) error {
	scenes := make([]timeline.Scene, 0, len(state.Script.Scenes))
	tracks := make([]timeline.Track, 0, len(state.Narration))
	for i, scene := range state.Script.Scenes {
		if i < len(state.Narration) && state.Narration[i].ID != "" {
			scenes = append(scenes, timeline.Scene{Index: i, Duration: scene.DurationSeconds})
			tracks = append(tracks, state.Narration[i])
		}
	}
	if len(tracks) < len(state.Script.Scenes) {
		c.noteWarning(fmt.Sprintf("%d of %d scenes are missing narration",
			len(state.Script.Scenes)-len(tracks), len(state.Script.Scenes)))
	}

	opts := timeline.Options{
		MaxTimingDifference: c.cfg.Timeline.MaxTimingDifference,
		DefaultCrossfade:    c.cfg.Timeline.DefaultCrossfade,
		MaxVolumeAdjustment: c.cfg.Timeline.MaxVolumeAdjustment,
	}
	synced, report, err := timeline.Synchronize(tracks, scenes, opts)
	if err != nil {
		return err
	}
	state.Synced = synced
	state.Timeline = report
	return nil
}

func (c *Controller) runFinalization(ctx context.Context, state *State) error {
	for _, format := range c.cfg.Generation.OutputFormats {
		output, err := c.encoder.Mux(ctx, MuxRequest{
			ProjectID: state.ProjectID,
			Clips:     state.Clips,
			Music:     state.Music,
			Tracks:    state.Synced,
			Format:    format,
			OutputDir: c.cfg.Paths.OutputDir,
		})
		if err != nil {
			return err
		}
		state.Outputs = append(state.Outputs, output.Location)
	}
	return nil
}
