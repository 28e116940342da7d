// Package audiogen wraps the speech synthesis and music generation APIs.
// The client performs single requests; retry orchestration belongs to the
// recovery coordinator.
package audiogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fabula/internal/services"
)

const (
	serviceName        = "audio"
	defaultHTTPTimeout = 120 * time.Second
)

// Config captures the runtime settings required to talk to the audio service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Voice          string
	MusicModel     string
	TimeoutSeconds int
}

// Client wraps the speech and music generation APIs.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an audio generation client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Voice:          strings.TrimSpace(cfg.Voice),
			MusicModel:     strings.TrimSpace(cfg.MusicModel),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice,omitempty"`
	Text  string `json:"text"`
}

type musicRequest struct {
	Model           string  `json:"model"`
	Prompt          string  `json:"prompt"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type audioResponse struct {
	URL             string  `json:"url"`
	Format          string  `json:"format"`
	DurationSeconds float64 `json:"duration_seconds"`
	Bytes           int64   `json:"bytes"`
}

// Speak synthesizes narration audio for the text.
func (c *Client) Speak(ctx context.Context, text string) (services.Asset, error) {
	var empty services.Asset
	text = strings.TrimSpace(text)
	if text == "" {
		return empty, errors.New("speak: text required")
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "", "audio", "api key required", nil)
	}

	body, err := c.post(ctx, "/v1/speech", speechRequest{
		Model: c.cfg.Model,
		Voice: c.cfg.Voice,
		Text:  text,
	})
	if err != nil {
		return empty, err
	}
	return decodeAsset(body, "speak", "mp3")
}

// Compose generates background music matching the prompt.
func (c *Client) Compose(ctx context.Context, prompt string, durationSeconds float64) (services.Asset, error) {
	var empty services.Asset
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return empty, errors.New("compose: prompt required")
	}
	if durationSeconds <= 0 {
		return empty, errors.New("compose: duration must be positive")
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "", "audio", "api key required", nil)
	}

	body, err := c.post(ctx, "/v1/music", musicRequest{
		Model:           c.cfg.MusicModel,
		Prompt:          prompt,
		DurationSeconds: durationSeconds,
	})
	if err != nil {
		return empty, err
	}
	return decodeAsset(body, "compose", "mp3")
}

// HealthCheck verifies the service endpoint is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1/health")
	if err != nil {
		return fmt.Errorf("audio health: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("audio health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Normalize(serviceName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.NormalizeHTTP(serviceName, resp.StatusCode, "", 0)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func decodeAsset(body []byte, op, defaultFormat string) (services.Asset, error) {
	var parsed audioResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return services.Asset{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if parsed.URL == "" {
		return services.Asset{}, services.NewError(serviceName, services.CodeTemporaryFailure, "response missing audio url")
	}
	format := parsed.Format
	if format == "" {
		format = defaultFormat
	}
	return services.Asset{
		Location:        parsed.URL,
		Format:          format,
		DurationSeconds: parsed.DurationSeconds,
		SizeBytes:       parsed.Bytes,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("audio request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("audio request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("audio request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Normalize(serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Normalize(serviceName, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, services.NormalizeHTTP(serviceName, resp.StatusCode, string(body), retryAfter)
	}
	return body, nil
}
