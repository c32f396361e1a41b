package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"counsellor/internal/config"
)

func TestGeminiRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "ok"}}}},
			},
		})
	}))
	defer srv.Close()

	c := NewGemini(config.ProviderConfig{BaseURL: srv.URL, Model: "gemini-1.5-flash", APIKey: "sekret"}, 5*time.Second)
	raw, err := c.GenerateRaw(context.Background(), "SYS", "USERMSG")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, ok := raw["candidates"]; !ok {
		t.Fatalf("raw body not passed through: %+v", raw)
	}
	if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Fatalf("path %q", gotPath)
	}
	if gotKey != "sekret" {
		t.Fatalf("key %q", gotKey)
	}
	contents := gotBody["contents"].([]any)
	part := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)
	text := part["text"].(string)
	if text != "SYS\n\nUSER:\nUSERMSG" {
		t.Fatalf("combined prompt %q", text)
	}
}

func TestOpenAICompatibleRequestShape(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	c := NewGroq(config.ProviderConfig{BaseURL: srv.URL, Model: "llama-3.1-8b-instant", APIKey: "gk"}, 5*time.Second)
	if _, err := c.GenerateRaw(context.Background(), "SYS", "USERMSG"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gotAuth != "Bearer gk" {
		t.Fatalf("auth %q", gotAuth)
	}
	if gotPath != "/openai/v1/chat/completions" {
		t.Fatalf("path %q", gotPath)
	}
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages %+v", msgs)
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "SYS" {
		t.Fatalf("system message %+v", first)
	}
	if gotBody["temperature"].(float64) != 0.2 {
		t.Fatalf("temperature %v", gotBody["temperature"])
	}
}

func TestClientMissingKey(t *testing.T) {
	c := NewGroq(config.ProviderConfig{BaseURL: "http://localhost:0", Model: "m"}, time.Second)
	_, err := c.GenerateRaw(context.Background(), "s", "u")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Provider != "groq" {
		t.Fatalf("provider %q", pe.Provider)
	}
}

func TestClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewPerplexity(config.ProviderConfig{BaseURL: srv.URL, Model: "sonar", APIKey: "pk"}, time.Second)
	_, err := c.GenerateRaw(context.Background(), "s", "u")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}
