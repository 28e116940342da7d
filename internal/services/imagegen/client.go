// Package imagegen wraps the still-image generation API used for scene
// keyframes. The client performs single requests; retry orchestration belongs
// to the recovery coordinator.
package imagegen

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
	serviceName        = "image"
	defaultHTTPTimeout = 120 * time.Second
)

// Config captures the runtime settings required to talk to the image service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the image generation API.
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

// NewClient constructs an image generation client.
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

type generateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Quality string `json:"quality,omitempty"`
}

type generateResponse struct {
	URL    string `json:"url"`
	Format string `json:"format"`
	Bytes  int64  `json:"bytes"`
}

// Generate renders one still image for the prompt and returns its location.
func (c *Client) Generate(ctx context.Context, prompt, quality string) (services.Asset, error) {
	var empty services.Asset
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return empty, errors.New("generate image: prompt required")
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "", "image", "api key required", nil)
	}

	body, err := c.post(ctx, "/v1/images", generateRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		Quality: quality,
	})
	if err != nil {
		return empty, err
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return empty, fmt.Errorf("generate image: decode response: %w", err)
	}
	if parsed.URL == "" {
		return empty, services.NewError(serviceName, services.CodeTemporaryFailure, "response missing image url")
	}
	format := parsed.Format
	if format == "" {
		format = "png"
	}
	return services.Asset{Location: parsed.URL, Format: format, SizeBytes: parsed.Bytes}, nil
}

// HealthCheck verifies the service endpoint is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1/health")
	if err != nil {
		return fmt.Errorf("image health: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("image health: new request: %w", err)
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
		return nil, fmt.Errorf("image request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("image request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("image request: new request: %w", err)
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
