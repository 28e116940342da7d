package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBudget(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBudget() error {
	if c.Budget.LimitUSD <= 0 {
		return errors.New("budget.limit_usd must be positive")
	}
	if c.Budget.WarningThreshold <= 0 || c.Budget.WarningThreshold > 1 {
		return errors.New("budget.warning_threshold must be between 0 and 1")
	}
	if !recognizedAccountingWindows[c.Budget.AccountingWindow] {
		return fmt.Errorf("budget.accounting_window must be one of session, daily, weekly, monthly (got %q)", c.Budget.AccountingWindow)
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.MaxScenes <= 0 {
		return errors.New("generation.max_scenes must be positive")
	}
	if len(c.Generation.OutputFormats) == 0 {
		return errors.New("generation.output_formats must include at least one format")
	}
	for _, format := range c.Generation.OutputFormats {
		if !recognizedOutputFormats[format] {
			return fmt.Errorf("generation.output_formats: unrecognized format %q (supported: mp4, webm, avi, mov)", format)
		}
	}
	if !recognizedQualityTiers[c.Generation.Quality] {
		return fmt.Errorf("generation.quality must be one of draft, standard, high (got %q)", c.Generation.Quality)
	}
	if c.Generation.PausePollIntervalMS <= 0 {
		return errors.New("generation.pause_poll_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must not be negative")
	}
	if c.Retry.BaseDelayMS <= 0 {
		return errors.New("retry.base_delay_ms must be positive")
	}
	if c.Retry.MaxDelayMS < c.Retry.BaseDelayMS {
		return errors.New("retry.max_delay_ms must be at least retry.base_delay_ms")
	}
	return nil
}

func (c *Config) validateTimeline() error {
	if c.Timeline.MaxTimingDifference <= 0 {
		return errors.New("timeline.max_timing_difference must be positive (seconds)")
	}
	if c.Timeline.DefaultCrossfade < 0 {
		return errors.New("timeline.default_crossfade must not be negative")
	}
	if c.Timeline.MaxVolumeAdjustment < 1 {
		return errors.New("timeline.max_volume_adjustment must be at least 1")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.NtfyTopic) != "" && c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive when a topic is configured")
	}
	return nil
}
