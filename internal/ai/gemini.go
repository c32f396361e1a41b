package ai

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"counsellor/internal/config"
)

// GeminiClient speaks the generateContent API: a single user content part
// carrying both prompts, with the API key as a URL query parameter.
type GeminiClient struct {
	cfg  config.ProviderConfig
	http *http.Client
}

func NewGemini(cfg config.ProviderConfig, timeout time.Duration) *GeminiClient {
	return &GeminiClient{cfg: cfg, http: newHTTPClient(timeout)}
}

func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) GenerateRaw(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	if c.cfg.APIKey == "" {
		return nil, &ProviderError{Provider: c.Name(), Err: errors.New("api key missing")}
	}
	endpoint := c.cfg.BaseURL + "/v1beta/models/" + c.cfg.Model + ":generateContent?key=" + url.QueryEscape(c.cfg.APIKey)
	body := map[string]any{
		"contents": []any{
			map[string]any{
				"role": "user",
				"parts": []any{
					map[string]any{"text": systemPrompt + "\n\nUSER:\n" + userPrompt},
				},
			},
		},
	}
	raw, err := postJSON(ctx, c.http, endpoint, nil, body)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Err: err}
	}
	return raw, nil
}
