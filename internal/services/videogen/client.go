// Package videogen wraps the image-to-video generation API that animates
// scene keyframes into clips. The client performs single requests; retry
// orchestration belongs to the recovery coordinator.
package videogen

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
	serviceName        = "video"
	defaultHTTPTimeout = 300 * time.Second
)

// Config captures the runtime settings required to talk to the video service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the video generation API.
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

// NewClient constructs a video generation client.
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
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type animateRequest struct {
	Model           string  `json:"model"`
	ImageURL        string  `json:"image_url"`
	Prompt          string  `json:"prompt,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type animateResponse struct {
	URL             string  `json:"url"`
	Format          string  `json:"format"`
	DurationSeconds float64 `json:"duration_seconds"`
	Bytes           int64   `json:"bytes"`
}

// Animate turns a still keyframe into a video clip of the requested length.
func (c *Client) Animate(ctx context.Context, imageLocation, prompt string, durationSeconds float64) (services.Asset, error) {
	var empty services.Asset
	imageLocation = strings.TrimSpace(imageLocation)
	if imageLocation == "" {
		return empty, errors.New("animate: image location required")
	}
	if durationSeconds <= 0 {
		return empty, errors.New("animate: duration must be positive")
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "", "video", "api key required", nil)
	}

	body, err := c.post(ctx, "/v1/videos", animateRequest{
		Model:           c.cfg.Model,
		ImageURL:        imageLocation,
		Prompt:          strings.TrimSpace(prompt),
		DurationSeconds: durationSeconds,
	})
	if err != nil {
		return empty, err
	}

	var parsed animateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return empty, fmt.Errorf("animate: decode response: %w", err)
	}
	if parsed.URL == "" {
		return empty, services.NewError(serviceName, services.CodeTemporaryFailure, "response missing clip url")
	}
	format := parsed.Format
	if format == "" {
		format = "mp4"
	}
	duration := parsed.DurationSeconds
	if duration <= 0 {
		duration = durationSeconds
	}
	return services.Asset{
		Location:        parsed.URL,
		Format:          format,
		DurationSeconds: duration,
		SizeBytes:       parsed.Bytes,
	}, nil
}

// HealthCheck verifies the service endpoint is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1/health")
	if err != nil {
		return fmt.Errorf("video health: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("video health: new request: %w", err)
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

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("video request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("video request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("video request: new request: %w", err)
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
