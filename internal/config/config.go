package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir      string `toml:"state_dir"`
	OutputDir     string `toml:"output_dir"`
	LogDir        string `toml:"log_dir"`
	CheckpointDir string `toml:"checkpoint_dir"`
}

// Budget contains cost governance settings.
type Budget struct {
	LimitUSD         float64 `toml:"limit_usd"`
	WarningThreshold float64 `toml:"warning_threshold"`
	AccountingWindow string  `toml:"accounting_window"`
}

// Generation contains pipeline-wide generation settings.
type Generation struct {
	MaxScenes           int      `toml:"max_scenes"`
	OutputFormats       []string `toml:"output_formats"`
	Quality             string   `toml:"quality"`
	PausePollIntervalMS int      `toml:"pause_poll_interval_ms"`
}

// Retry contains the backoff policy applied to transient failures.
type Retry struct {
	MaxRetries  int  `toml:"max_retries"`
	BaseDelayMS int  `toml:"base_delay_ms"`
	MaxDelayMS  int  `toml:"max_delay_ms"`
	Jitter      bool `toml:"jitter"`
}

// Service contains connection settings for one generative-media service.
type Service struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Audio extends Service with speech and music settings.
type Audio struct {
	Service
	Voice      string `toml:"voice"`
	MusicModel string `toml:"music_model"`
}

// Timeline contains audio synchronization tuning.
type Timeline struct {
	MaxTimingDifference float64 `toml:"max_timing_difference"`
	DefaultCrossfade    float64 `toml:"default_crossfade"`
	MaxVolumeAdjustment float64 `toml:"max_volume_adjustment"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Fabula.
//
// Configuration sections by subsystem:
//   - Paths: state, output, log, and checkpoint directories
//   - Budget: spend limit, warning threshold, accounting window
//   - Generation: scene count cap, output formats, quality tier
//   - Retry: backoff policy for transient service failures
//   - Text/Image/Video/Audio: per-service connection settings
//   - Timeline: audio timing synchronization tuning
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Budget        Budget        `toml:"budget"`
	Generation    Generation    `toml:"generation"`
	Retry         Retry         `toml:"retry"`
	Text          Service       `toml:"text"`
	Image         Service       `toml:"image"`
	Video         Service       `toml:"video"`
	Audio         Audio         `toml:"audio"`
	Timeline      Timeline      `toml:"timeline"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fabula/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fabula.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	paths := []*string{
		&c.Paths.StateDir,
		&c.Paths.OutputDir,
		&c.Paths.LogDir,
		&c.Paths.CheckpointDir,
	}
	for _, value := range paths {
		expanded, err := expandPath(*value)
		if err != nil {
			return err
		}
		*value = expanded
	}

	c.Budget.AccountingWindow = strings.ToLower(strings.TrimSpace(c.Budget.AccountingWindow))
	c.Generation.Quality = strings.ToLower(strings.TrimSpace(c.Generation.Quality))
	for i, format := range c.Generation.OutputFormats {
		c.Generation.OutputFormats[i] = strings.ToLower(strings.TrimSpace(format))
	}
	return nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.CheckpointDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
