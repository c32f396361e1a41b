package ai

import (
	"context"
	"log"
	"time"

	"counsellor/internal/config"
)

// Router tries providers in a fixed order and returns the first success.
// The order is static configuration; there is no health-aware reordering
// and no parallel fan-out, one provider is awaited before the next.
type Router struct {
	provider string
	order    []Client
	byName   map[string]Client
}

// NewRouter builds every known client from config. Clients with missing
// credentials are constructed anyway; they fail as ordinary providers.
func NewRouter(cfg *config.Config) *Router {
	timeout := time.Duration(cfg.AI.RequestTimeoutSeconds) * time.Second
	order := []Client{
		NewGemini(cfg.AI.Gemini, timeout),
		NewGroq(cfg.AI.Groq, timeout),
		NewOpenRouter(cfg.AI.OpenRouter, timeout),
		NewPerplexity(cfg.AI.Perplexity, timeout),
	}
	byName := make(map[string]Client, len(order))
	for _, c := range order {
		byName[c.Name()] = c
	}
	return &Router{provider: cfg.AI.Provider, order: order, byName: byName}
}

// NewRouterWithClients is the test seam: a pinned/auto router over the
// given clients in the given order.
func NewRouterWithClients(provider string, clients ...Client) *Router {
	byName := make(map[string]Client, len(clients))
	for _, c := range clients {
		byName[c.Name()] = c
	}
	return &Router{provider: provider, order: clients, byName: byName}
}

func (r *Router) GenerateRaw(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	provider := r.provider
	if provider == "" {
		provider = "auto"
	}
	if provider != "auto" {
		c, ok := r.byName[provider]
		if !ok {
			return nil, &UnknownProviderError{Name: provider}
		}
		return c.GenerateRaw(ctx, systemPrompt, userPrompt)
	}
	var last error
	for _, c := range r.order {
		raw, err := c.GenerateRaw(ctx, systemPrompt, userPrompt)
		if err != nil {
			last = err
			log.Printf("ai: provider %s failed: %v", c.Name(), err)
			continue
		}
		log.Printf("ai: using provider %s", c.Name())
		return raw, nil
	}
	return nil, &AllProvidersFailedError{Last: last}
}
