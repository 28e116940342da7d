package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fabula/internal/budget"
	"fabula/internal/config"
	"fabula/internal/logging"
	"fabula/internal/notifications"
	"fabula/internal/project"
	"fabula/internal/recovery"
)

// Errors returned by the pause/resume controls.
var (
	ErrNoActiveGeneration = errors.New("no active generation")
	ErrNoPausedGeneration = errors.New("no paused generation")
	ErrAlreadyRunning     = errors.New("a generation is already running")
)

const defaultPollInterval = 250 * time.Millisecond

// Deps bundles the collaborators the controller drives.
type Deps struct {
	Logger      *slog.Logger
	Store       *project.Store
	Governor    *budget.Governor
	Coordinator *recovery.Coordinator
	Checkpoints *recovery.CheckpointStore
	States      *StateStore
	Notifier    notifications.Service
	Text        TextService
	Image       ImageService
	Video       VideoService
	Audio       AudioService
	Encoder     Encoder
}

// Controller drives one generation run at a time through the stage sequence.
type Controller struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *project.Store
	governor    *budget.Governor
	coordinator *recovery.Coordinator
	checkpoints *recovery.CheckpointStore
	states      *StateStore
	notifier    notifications.Service
	text        TextService
	image       ImageService
	video       VideoService
	audio       AudioService
	encoder     Encoder

	pollInterval time.Duration

	mu           sync.Mutex
	running      bool
	paused       bool
	projectID    string
	projectTitle string
	stage        Stage
	stageStarted time.Time
	completed    int
	warnings     []string
	calls        int
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	Running   bool
	Paused    bool
	ProjectID string
	Stage     Stage
	Overall   float64
	ETA       time.Duration
}

// Result summarizes one generation run.
type Result struct {
	ProjectID     string
	Title         string
	SceneCount    int
	Characters    int
	TotalCost     float64
	ExternalCalls int
	Outputs       []string
	Warnings      []string
	Errors        []string
	Completed     bool
}

// NewController builds a pipeline controller over the supplied collaborators.
func NewController(cfg *config.Config, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	poll := time.Duration(cfg.Generation.PausePollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPollInterval
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	encoder := deps.Encoder
	if encoder == nil {
		encoder = NewFFmpegEncoder("")
	}
	return &Controller{
		cfg:          cfg,
		logger:       logger.With(logging.String(logging.FieldComponent, "pipeline")),
		store:        deps.Store,
		governor:     deps.Governor,
		coordinator:  deps.Coordinator,
		checkpoints:  deps.Checkpoints,
		states:       deps.States,
		notifier:     notifier,
		text:         deps.Text,
		image:        deps.Image,
		video:        deps.Video,
		audio:        deps.Audio,
		encoder:      encoder,
		pollInterval: poll,
	}
}

func (c *Controller) sceneCount() int {
	if c.cfg.Generation.MaxScenes > 0 {
		return c.cfg.Generation.MaxScenes
	}
	return 10
}

// Start validates configuration, creates a project for the idea, and runs
// the full stage sequence.
func (c *Controller) Start(ctx context.Context, title, idea string) (*Result, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	c.running = true
	c.paused = false
	c.warnings = nil
	c.calls = 0
	c.completed = 0
	c.mu.Unlock()
	defer c.finishRun()

	proj, err := c.store.Create(ctx, title, idea, c.sceneCount())
	if err != nil {
		return nil, err
	}
	c.setProject(proj.ID, proj.Title)

	state := &State{ProjectID: proj.ID}
	state.Premise.Idea = proj.Idea

	if err := c.notifier.NotifyProjectInitialized(ctx, proj.Title, proj.SceneCount); err != nil {
		c.logger.Warn("notify project initialized", logging.Error(err))
	}

	return c.run(ctx, proj, state, 0)
}

// ResumeProject continues an interrupted run from its last completed stage.
func (c *Controller) ResumeProject(ctx context.Context, projectID string) (*Result, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	c.running = true
	c.paused = false
	c.warnings = nil
	c.calls = 0
	c.mu.Unlock()
	defer c.finishRun()

	proj, err := c.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c.setProject(proj.ID, proj.Title)

	state, found, err := c.states.Load(projectID)
	if err != nil {
		return nil, err
	}
	if !found {
		state = &State{ProjectID: proj.ID}
		state.Premise.Idea = proj.Idea
	}

	start := c.resumeIndex(proj)
	c.mu.Lock()
	c.completed = start
	c.mu.Unlock()

	if err := c.notifier.NotifyResumed(ctx, proj.Title, Stage(start).String()); err != nil {
		c.logger.Warn("notify resumed", logging.Error(err))
	}
	return c.run(ctx, proj, state, start)
}

// resumeIndex finds the first stage not in the completed prefix. Completed
// stages out of order are ignored; execution order is fixed.
func (c *Controller) resumeIndex(proj *project.Project) int {
	index := 0
	for _, stage := range Stages() {
		if !proj.HasCompleted(stage.String()) {
			break
		}
		index++
	}
	return index
}

// Pause requests a pause. The run stops at the next stage boundary.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ErrNoActiveGeneration
	}
	if c.paused {
		return nil
	}
	c.paused = true
	return nil
}

// Resume releases a pause requested with Pause.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || !c.paused {
		return ErrNoPausedGeneration
	}
	c.paused = false
	return nil
}

// Status reports the live controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		Running:   c.running,
		Paused:    c.paused,
		ProjectID: c.projectID,
		Stage:     c.stage,
	}
	if c.running {
		elapsed := time.Since(c.stageStarted)
		status.Overall = Overall(c.completed, StageFraction(c.stage, elapsed))
		status.ETA = ETA(c.completed, c.stage, elapsed)
	}
	return status
}

func (c *Controller) run(ctx context.Context, proj *project.Project, state *State, startIndex int) (*Result, error) {
	proj.Status = project.StatusRunning
	if err := c.store.Update(ctx, proj); err != nil {
		return nil, err
	}

	log := c.logger.With(logging.String(logging.FieldProjectID, proj.ID))
	stages := Stages()

	for i := startIndex; i < len(stages); i++ {
		stage := stages[i]

		if err := c.waitWhilePaused(ctx, proj, state, stage); err != nil {
			return c.failResult(ctx, proj, state, stage, err), err
		}

		c.beginStage(stage, i)
		log.Info("stage started", logging.String(logging.FieldStage, stage.String()))
		if err := c.notifier.NotifyStageStarted(ctx, proj.Title, stage.String()); err != nil {
			log.Warn("notify stage started", logging.Error(err))
		}

		if blocked, verdict, err := c.gateOnBudget(ctx, stage, state); err != nil {
			return c.failResult(ctx, proj, state, stage, err), err
		} else if blocked {
			message := verdict.Blocked
			c.noteWarning(message)
			proj.Status = project.StatusPartial
			proj.ErrorMessage = message
			_ = c.store.Update(ctx, proj)
			c.saveProgress(proj, state, stage)
			log.Warn("budget exhausted, stopping run", logging.String("reason", message))
			result := c.buildResult(ctx, proj, state, false)
			result.Errors = append(result.Errors, message)
			return result, nil
		}

		if err := c.runStage(ctx, stage, state); err != nil {
			return c.failResult(ctx, proj, state, stage, err), err
		}

		proj.MarkStageDone(stage.String())
		c.updateCost(ctx, proj)
		if err := c.store.Update(ctx, proj); err != nil {
			return nil, err
		}
		c.saveProgress(proj, state, stage)
		c.markStageComplete(i)

		log.Info("stage completed", logging.String(logging.FieldStage, stage.String()))
		if err := c.notifier.NotifyStageCompleted(ctx, proj.Title, stage.String()); err != nil {
			log.Warn("notify stage completed", logging.Error(err))
		}
	}

	proj.Status = project.StatusCompleted
	for i, output := range state.Outputs {
		proj.SetArtifact(fmt.Sprintf("output-%d", i), output)
	}
	c.updateCost(ctx, proj)
	if err := c.store.Update(ctx, proj); err != nil {
		return nil, err
	}
	_ = c.checkpoints.Remove(proj.ID)

	result := c.buildResult(ctx, proj, state, true)
	output := ""
	if len(result.Outputs) > 0 {
		output = result.Outputs[0]
	}
	if err := c.notifier.NotifyCompleted(ctx, proj.Title, output, result.TotalCost); err != nil {
		log.Warn("notify completed", logging.Error(err))
	}
	return result, nil
}

// waitWhilePaused blocks at a stage boundary while a pause is in effect.
// Entering the pause saves a checkpoint so the run survives a process exit.
func (c *Controller) waitWhilePaused(ctx context.Context, proj *project.Project, state *State, stage Stage) error {
	c.mu.Lock()
	paused := c.paused
	c.mu.Unlock()
	if !paused {
		return nil
	}

	c.saveProgress(proj, state, stage)
	proj.Status = project.StatusPaused
	_ = c.store.Update(ctx, proj)
	if err := c.notifier.NotifyPaused(ctx, proj.Title, stage.String()); err != nil {
		c.logger.Warn("notify paused", logging.Error(err))
	}
	if err := c.notifier.NotifyProgressSaved(ctx, proj.Title, stage.String()); err != nil {
		c.logger.Warn("notify progress saved", logging.Error(err))
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.mu.Lock()
			paused := c.paused
			c.mu.Unlock()
			if !paused {
				proj.Status = project.StatusRunning
				_ = c.store.Update(ctx, proj)
				if err := c.notifier.NotifyResumed(ctx, proj.Title, stage.String()); err != nil {
					c.logger.Warn("notify resumed", logging.Error(err))
				}
				return nil
			}
		}
	}
}

// gateOnBudget checks the planned spend for the stage. Warnings notify and
// proceed; a block stops the run.
func (c *Controller) gateOnBudget(ctx context.Context, stage Stage, state *State) (bool, budget.Verdict, error) {
	planned := c.plannedOperations(stage, state)
	if len(planned) == 0 {
		return false, budget.Verdict{CanProceed: true}, nil
	}

	verdict, err := c.governor.CheckBudget(ctx, planned)
	if err != nil {
		return false, verdict, err
	}
	if verdict.Warning != "" {
		c.noteWarning(verdict.Warning)
		usage, usageErr := c.governor.CurrentUsage(ctx)
		if usageErr == nil {
			if err := c.notifier.NotifyBudgetWarning(ctx, usage.TotalCost, c.cfg.Budget.LimitUSD); err != nil {
				c.logger.Warn("notify budget warning", logging.Error(err))
			}
		}
	}
	return !verdict.CanProceed, verdict, nil
}

func (c *Controller) saveProgress(proj *project.Project, state *State, stage Stage) {
	if err := c.states.Save(state); err != nil {
		c.logger.Warn("save pipeline state", logging.Error(err))
	}
	checkpoint := recovery.Checkpoint{
		ProjectID:       proj.ID,
		Stage:           stage.String(),
		CompletedStages: append([]string(nil), proj.CompletedStages...),
	}
	for _, failure := range c.coordinator.Failures(proj.ID) {
		checkpoint.Failures = append(checkpoint.Failures, failure.Err.Error())
	}
	if err := c.checkpoints.Save(checkpoint); err != nil {
		c.logger.Warn("save checkpoint", logging.Error(err))
	}
}

func (c *Controller) failResult(ctx context.Context, proj *project.Project, state *State, stage Stage, cause error) *Result {
	if errors.Is(cause, context.Canceled) {
		proj.Status = project.StatusPaused
	} else if len(proj.CompletedStages) > 0 {
		proj.Status = project.StatusPartial
	} else {
		proj.Status = project.StatusFailed
	}
	proj.ErrorMessage = cause.Error()
	c.updateCost(ctx, proj)
	_ = c.store.Update(ctx, proj)
	c.saveProgress(proj, state, stage)

	if err := c.notifier.NotifyError(ctx, cause, stage.String()); err != nil {
		c.logger.Warn("notify error", logging.Error(err))
	}

	result := c.buildResult(ctx, proj, state, false)
	result.Errors = append(result.Errors, cause.Error())
	report := c.coordinator.BuildReport(proj.ID)
	result.Warnings = append(result.Warnings, report.Recommendations...)
	return result
}

func (c *Controller) buildResult(ctx context.Context, proj *project.Project, state *State, completed bool) *Result {
	c.mu.Lock()
	warnings := append([]string(nil), c.warnings...)
	calls := c.calls
	c.mu.Unlock()

	result := &Result{
		ProjectID:     proj.ID,
		Title:         proj.Title,
		SceneCount:    len(state.Script.Scenes),
		Characters:    len(state.Characters),
		ExternalCalls: calls,
		Outputs:       append([]string(nil), state.Outputs...),
		Warnings:      warnings,
		Completed:     completed,
	}
	if usage, err := c.governor.CurrentUsage(ctx); err == nil {
		result.TotalCost = usage.TotalCost
	}
	return result
}

func (c *Controller) updateCost(ctx context.Context, proj *project.Project) {
	if usage, err := c.governor.CurrentUsage(ctx); err == nil {
		proj.TotalCost = usage.TotalCost
	}
}

func (c *Controller) setProject(id, title string) {
	c.mu.Lock()
	c.projectID = id
	c.projectTitle = title
	c.mu.Unlock()
}

func (c *Controller) beginStage(stage Stage, index int) {
	c.mu.Lock()
	c.stage = stage
	c.stageStarted = time.Now()
	c.completed = index
	c.mu.Unlock()
}

func (c *Controller) markStageComplete(index int) {
	c.mu.Lock()
	c.completed = index + 1
	c.mu.Unlock()
}

func (c *Controller) finishRun() {
	c.mu.Lock()
	c.running = false
	c.paused = false
	c.mu.Unlock()
}

func (c *Controller) noteWarning(message string) {
	c.mu.Lock()
	c.warnings = append(c.warnings, message)
	c.mu.Unlock()
}

func (c *Controller) countCalls(attempts int) {
	c.mu.Lock()
	c.calls += attempts
	c.mu.Unlock()
}
