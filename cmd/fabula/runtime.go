package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"fabula/internal/budget"
	"fabula/internal/config"
	"fabula/internal/health"
	"fabula/internal/logging"
	"fabula/internal/pipeline"
	"fabula/internal/project"
	"fabula/internal/recovery"
	"fabula/internal/retry"
	"fabula/internal/services/audiogen"
	"fabula/internal/services/imagegen"
	"fabula/internal/services/textgen"
	"fabula/internal/services/videogen"
)

// engine bundles the long-lived collaborators a generation run needs. It is
// built per invocation and torn down when the command returns.
type engine struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *project.Store
	ledger      *budget.Ledger
	governor    *budget.Governor
	coordinator *recovery.Coordinator
	checkpoints *recovery.CheckpointStore
	states      *pipeline.StateStore
	controller  *pipeline.Controller
	lock        *flock.Flock
}

func openEngine(cfg *config.Config) (*engine, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Paths.LogDir,
	})
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	store, err := project.Open(cfg.Paths.StateDir)
	if err != nil {
		return nil, err
	}

	ledger, err := budget.OpenLedger(cfg.Paths.StateDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	governor := budget.NewGovernor(ledger, budget.Limits{
		LimitUSD:         cfg.Budget.LimitUSD,
		WarningThreshold: cfg.Budget.WarningThreshold,
		Window:           cfg.Budget.AccountingWindow,
	}, logger)

	coordinator := recovery.NewCoordinator(policyFromConfig(cfg.Retry), health.NewTracker(), logger)

	checkpoints, err := recovery.NewCheckpointStore(cfg.Paths.CheckpointDir)
	if err != nil {
		_ = ledger.Close()
		_ = store.Close()
		return nil, err
	}
	states, err := pipeline.NewStateStore(cfg.Paths.StateDir)
	if err != nil {
		_ = ledger.Close()
		_ = store.Close()
		return nil, err
	}

	controller := pipeline.NewController(cfg, pipeline.Deps{
		Logger:      logger,
		Store:       store,
		Governor:    governor,
		Coordinator: coordinator,
		Checkpoints: checkpoints,
		States:      states,
		Text: textgen.NewClient(textgen.Config{
			APIKey:         cfg.Text.APIKey,
			BaseURL:        cfg.Text.BaseURL,
			Model:          cfg.Text.Model,
			TimeoutSeconds: cfg.Text.TimeoutSeconds,
		}),
		Image: imagegen.NewClient(imagegen.Config{
			APIKey:         cfg.Image.APIKey,
			BaseURL:        cfg.Image.BaseURL,
			Model:          cfg.Image.Model,
			TimeoutSeconds: cfg.Image.TimeoutSeconds,
		}),
		Video: videogen.NewClient(videogen.Config{
			APIKey:         cfg.Video.APIKey,
			BaseURL:        cfg.Video.BaseURL,
			Model:          cfg.Video.Model,
			TimeoutSeconds: cfg.Video.TimeoutSeconds,
		}),
		Audio: audiogen.NewClient(audiogen.Config{
			APIKey:         cfg.Audio.APIKey,
			BaseURL:        cfg.Audio.BaseURL,
			Model:          cfg.Audio.Model,
			Voice:          cfg.Audio.Voice,
			MusicModel:     cfg.Audio.MusicModel,
			TimeoutSeconds: cfg.Audio.TimeoutSeconds,
		}),
	})

	return &engine{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		ledger:      ledger,
		governor:    governor,
		coordinator: coordinator,
		checkpoints: checkpoints,
		states:      states,
		controller:  controller,
		lock:        flock.New(filepath.Join(cfg.Paths.StateDir, "fabula.lock")),
	}, nil
}

// acquireLock guards against two concurrent generation runs sharing the same
// state directory.
func (e *engine) acquireLock() error {
	ok, err := e.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another fabula generation is already running (lock %s)", e.lock.Path())
	}
	return nil
}

func (e *engine) close() {
	if e.lock != nil {
		_ = e.lock.Unlock()
	}
	_ = e.ledger.Close()
	_ = e.store.Close()
}

func policyFromConfig(cfg config.Retry) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	if cfg.BaseDelayMS > 0 {
		policy.BaseDelay = time.Duration(cfg.BaseDelayMS) * time.Millisecond
	}
	if cfg.MaxDelayMS > 0 {
		policy.MaxDelay = time.Duration(cfg.MaxDelayMS) * time.Millisecond
	}
	policy.Jitter = cfg.Jitter
	return policy
}
