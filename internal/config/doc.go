// Package config loads, normalizes, and validates the TOML configuration for
// the generation pipeline: budget limits, stage timing, per-service
// credentials, retry policy, and audio timeline tuning.
package config
