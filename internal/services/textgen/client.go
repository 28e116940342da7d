package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fabula/internal/services"
	"fabula/internal/story"
)

const (
	serviceName        = "text"
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 60 * time.Second
	defaultBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
)

// Config captures the runtime settings required to talk to the text model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the chat completion API.
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

// NewClient constructs a text generation client using the supplied
// configuration.
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
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// ExpandIdea turns a one-line idea into a premise with synopsis, genre, and
// tone.
func (c *Client) ExpandIdea(ctx context.Context, idea string) (story.Premise, error) {
	var empty story.Premise
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return empty, errors.New("expand idea: idea required")
	}

	content, err := c.completeJSON(ctx, expandIdeaPrompt, idea)
	if err != nil {
		return empty, err
	}

	var parsed struct {
		Synopsis string `json:"synopsis"`
		Genre    string `json:"genre"`
		Tone     string `json:"tone"`
	}
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("expand idea: parse payload: %w", err)
	}
	return story.Premise{
		Idea:     idea,
		Synopsis: strings.TrimSpace(parsed.Synopsis),
		Genre:    strings.ToLower(strings.TrimSpace(parsed.Genre)),
		Tone:     strings.ToLower(strings.TrimSpace(parsed.Tone)),
	}, nil
}

// ComposeScript produces a scene-by-scene script for the premise with the
// requested number of scenes.
func (c *Client) ComposeScript(ctx context.Context, premise story.Premise, sceneCount int) (story.Script, error) {
	var empty story.Script
	if strings.TrimSpace(premise.Synopsis) == "" {
		return empty, errors.New("compose script: premise synopsis required")
	}
	if sceneCount <= 0 {
		return empty, errors.New("compose script: scene count must be positive")
	}

	userPrompt := fmt.Sprintf("Synopsis: %s\nGenre: %s\nTone: %s\nScenes: %d",
		premise.Synopsis, premise.Genre, premise.Tone, sceneCount)
	content, err := c.completeJSON(ctx, composeScriptPrompt, userPrompt)
	if err != nil {
		return empty, err
	}

	var parsed struct {
		Title  string `json:"title"`
		Scenes []struct {
			Narration       string  `json:"narration"`
			VisualPrompt    string  `json:"visual_prompt"`
			DurationSeconds float64 `json:"duration_seconds"`
		} `json:"scenes"`
	}
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("compose script: parse payload: %w", err)
	}
	if len(parsed.Scenes) == 0 {
		return empty, errors.New("compose script: model returned no scenes")
	}

	script := story.Script{Title: strings.TrimSpace(parsed.Title)}
	for i, scene := range parsed.Scenes {
		script.Scenes = append(script.Scenes, story.SceneScript{
			Index:           i,
			Narration:       strings.TrimSpace(scene.Narration),
			VisualPrompt:    strings.TrimSpace(scene.VisualPrompt),
			DurationSeconds: scene.DurationSeconds,
		})
	}
	return script, nil
}

// AnalyzeCharacters extracts the recurring characters from a script so image
// prompts can keep them visually consistent.
func (c *Client) AnalyzeCharacters(ctx context.Context, script story.Script) ([]story.Character, error) {
	if len(script.Scenes) == 0 {
		return nil, errors.New("analyze characters: script has no scenes")
	}

	var builder strings.Builder
	for _, scene := range script.Scenes {
		builder.WriteString(scene.Narration)
		builder.WriteString("\n")
	}
	content, err := c.completeJSON(ctx, analyzeCharactersPrompt, builder.String())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Characters []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Role        string `json:"role"`
		} `json:"characters"`
	}
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("analyze characters: parse payload: %w", err)
	}

	characters := make([]story.Character, 0, len(parsed.Characters))
	for _, character := range parsed.Characters {
		name := strings.TrimSpace(character.Name)
		if name == "" {
			continue
		}
		characters = append(characters, story.Character{
			Name:        name,
			Description: strings.TrimSpace(character.Description),
			Role:        strings.ToLower(strings.TrimSpace(character.Role)),
		})
	}
	return characters, nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.completeJSON(ctx,
		"You must respond with JSON only.",
		"Respond with {\"ok\":true}")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return fmt.Errorf("text health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("text health: unexpected response")
	}
	return nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completeJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "", "text", "api key required", nil)
	}

	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: strings.TrimSpace(systemPrompt)},
			{Role: "user", Content: strings.TrimSpace(userPrompt)},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("text request: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("text request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Normalize(serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Normalize(serviceName, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return "", services.NormalizeHTTP(serviceName, resp.StatusCode, string(body), retryAfter)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("text request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", services.NewError(serviceName, services.CodeInvalidRequest,
			strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			return "", services.NewError(serviceName, services.CodeContentFiltered, refusal)
		}
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", services.NewError(serviceName, services.CodeTemporaryFailure, "model returned empty content")
}
