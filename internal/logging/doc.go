// Package logging configures structured slog output for the pipeline engine
// and exposes typed attribute helpers plus context-derived logging fields
// (project, stage, service) shared across components.
package logging
