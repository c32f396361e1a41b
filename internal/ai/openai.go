package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"counsellor/internal/config"
)

// openAIClient covers the OpenAI-compatible chat-completions providers:
// system/user message list, bearer auth, per-provider path and temperature.
type openAIClient struct {
	name        string
	path        string
	temperature float64
	headers     map[string]string
	cfg         config.ProviderConfig
	http        *http.Client
}

func NewGroq(cfg config.ProviderConfig, timeout time.Duration) Client {
	return &openAIClient{
		name:        "groq",
		path:        "/openai/v1/chat/completions",
		temperature: 0.2,
		cfg:         cfg,
		http:        newHTTPClient(timeout),
	}
}

func NewOpenRouter(cfg config.ProviderConfig, timeout time.Duration) Client {
	return &openAIClient{
		name:        "openrouter",
		path:        "/api/v1/chat/completions",
		temperature: 0.3,
		headers: map[string]string{
			// recommended by OpenRouter
			"HTTP-Referer": "http://localhost",
			"X-Title":      "Counsellor",
		},
		cfg:  cfg,
		http: newHTTPClient(timeout),
	}
}

func NewPerplexity(cfg config.ProviderConfig, timeout time.Duration) Client {
	return &openAIClient{
		name:        "perplexity",
		path:        "/chat/completions",
		temperature: 0.2,
		cfg:         cfg,
		http:        newHTTPClient(timeout),
	}
}

func (c *openAIClient) Name() string { return c.name }

func (c *openAIClient) GenerateRaw(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	if c.cfg.APIKey == "" {
		return nil, &ProviderError{Provider: c.name, Err: errors.New("api key missing")}
	}
	body := map[string]any{
		"model": c.cfg.Model,
		"messages": []any{
			map[string]any{"role": "system", "content": systemPrompt},
			map[string]any{"role": "user", "content": userPrompt},
		},
		"temperature": c.temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	for k, v := range c.headers {
		headers[k] = v
	}
	raw, err := postJSON(ctx, c.http, c.cfg.BaseURL+c.path, headers, body)
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Err: err}
	}
	return raw, nil
}
