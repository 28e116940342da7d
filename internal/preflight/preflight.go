package preflight

import (
	"context"

	"fabula/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDiskSpace("Output disk space", cfg.Paths.OutputDir, minimumFreeBytes))

	results = append(results, CheckAPIKey("Text service key", cfg.Text.APIKey))
	results = append(results, CheckAPIKey("Image service key", cfg.Image.APIKey))
	results = append(results, CheckAPIKey("Video service key", cfg.Video.APIKey))
	results = append(results, CheckAPIKey("Audio service key", cfg.Audio.APIKey))

	if cfg.Text.APIKey != "" {
		results = append(results, CheckTextService(ctx, cfg))
	}

	return results
}
