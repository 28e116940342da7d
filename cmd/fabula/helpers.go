package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"fabula/internal/pipeline"
	"fabula/internal/project"
)

func printResult(out io.Writer, result *pipeline.Result) {
	if result.Completed {
		fmt.Fprintf(out, "Generation complete: %s\n", result.Title)
	} else {
		fmt.Fprintf(out, "Generation incomplete: %s\n", result.Title)
	}
	fmt.Fprintf(out, "  Project:        %s\n", result.ProjectID)
	fmt.Fprintf(out, "  Scenes:         %d\n", result.SceneCount)
	fmt.Fprintf(out, "  Characters:     %d\n", result.Characters)
	fmt.Fprintf(out, "  External calls: %d\n", result.ExternalCalls)
	fmt.Fprintf(out, "  Total cost:     %s\n", formatUSD(result.TotalCost))
	for _, output := range result.Outputs {
		fmt.Fprintf(out, "  Output:         %s\n", output)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "  Warning: %s\n", warning)
	}
	for _, message := range result.Errors {
		fmt.Fprintf(out, "  Error: %s\n", message)
	}
	if !result.Completed {
		fmt.Fprintf(out, "Resume with: fabula resume %s\n", result.ProjectID)
	}
}

func formatUSD(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func projectRow(proj *project.Project) []string {
	stage := proj.CurrentStage
	if stage == "" {
		stage = "-"
	}
	return []string{
		shortID(proj.ID),
		truncate(proj.Title, 40),
		string(proj.Status),
		stage,
		fmt.Sprintf("%d/8", len(proj.CompletedStages)),
		formatUSD(proj.TotalCost),
		formatTimestamp(proj.UpdatedAt),
	}
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

var projectTableHeaders = []string{"ID", "Title", "Status", "Stage", "Progress", "Cost", "Updated"}
