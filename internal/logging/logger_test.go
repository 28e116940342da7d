package logging_test

import (
	"context"
	"testing"

	"fabula/internal/logging"
	"fabula/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewAcceptsKnownFormats(t *testing.T) {
	for _, format := range []string{"", "console", "json"} {
		if _, err := logging.New(logging.Options{Format: format, Level: "debug"}); err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithProjectID(context.Background(), "prj-1")
	ctx = services.WithStage(ctx, "script")
	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	logger := logging.WithContext(ctx, logging.NewNop())
	if logger == nil {
		t.Fatal("expected logger")
	}
}
