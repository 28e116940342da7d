package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
state_dir = %q
output_dir = %q
log_dir = %q
checkpoint_dir = %q
`,
		filepath.Join(base, "state"),
		filepath.Join(base, "output"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "state"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite must refuse to clobber the file.
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigValidate(t *testing.T) {
	path := writeTestConfig(t)
	out, err := runCLI(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestConfigShowMasksAPIKeys(t *testing.T) {
	path := writeTestConfig(t)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	content = append(content, []byte("\n[text]\napi_key = \"sk-secret\"\n")...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	out, err := runCLI(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-secret") {
		t.Fatal("config show must not print API keys")
	}
	if !strings.Contains(out, "***") {
		t.Fatalf("expected masked key in output: %q", out)
	}
}

func TestStatusWithEmptyStore(t *testing.T) {
	path := writeTestConfig(t)
	out, err := runCLI(t, "--config", path, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "No projects yet") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestResumeWithNothingToResume(t *testing.T) {
	path := writeTestConfig(t)
	out, err := runCLI(t, "--config", path, "resume")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !strings.Contains(out, "No resumable projects") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTruncateAndShortID(t *testing.T) {
	if got := truncate("abcdefghij", 8); got != "abcde..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 8); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := shortID("3f2a1b9c-0000-0000-0000-000000000000"); got != "3f2a1b9c" {
		t.Fatalf("shortID = %q", got)
	}
}
