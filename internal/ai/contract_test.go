package ai

import (
	"errors"
	"testing"
)

func TestExtractTextGeminiShape(t *testing.T) {
	raw := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{
						map[string]any{"text": "hello"},
					},
				},
			},
		},
	}
	text, err := ExtractText(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "hello" {
		t.Fatalf("got %q", text)
	}
}

func TestExtractTextOpenAIShape(t *testing.T) {
	raw := map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{"content": "hi there"},
			},
		},
	}
	text, err := ExtractText(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "hi there" {
		t.Fatalf("got %q", text)
	}
}

func TestExtractTextUnknownShape(t *testing.T) {
	cases := []map[string]any{
		{},
		{"candidates": []any{}},
		{"candidates": []any{map[string]any{"content": map[string]any{}}}},
		{"choices": []any{map[string]any{"message": map[string]any{"content": 42}}}},
		{"output": "nope"},
	}
	for i, raw := range cases {
		if _, err := ExtractText(raw); !errors.Is(err, ErrUnknownFormat) {
			t.Fatalf("case %d: expected ErrUnknownFormat, got %v", i, err)
		}
	}
}

func TestParseContractStripsFences(t *testing.T) {
	text := "```json\n{\"reply\":\"ok\",\"actions\":[{\"type\":\"create_task\",\"args\":{\"title\":\"x\"}}]}\n```"
	c, err := ParseContract(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Reply != "ok" {
		t.Fatalf("reply %q", c.Reply)
	}
	if len(c.Actions) != 1 || c.Actions[0].Type != "create_task" {
		t.Fatalf("actions %+v", c.Actions)
	}
	if c.Actions[0].Args["title"] != "x" {
		t.Fatalf("args %+v", c.Actions[0].Args)
	}
}

func TestParseContractMissingActionsDefaultsEmpty(t *testing.T) {
	c, err := ParseContract(`{"reply":"just words"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Actions == nil || len(c.Actions) != 0 {
		t.Fatalf("expected empty actions, got %+v", c.Actions)
	}
}

func TestParseContractFailsClosed(t *testing.T) {
	var ce *ContractError
	for _, text := range []string{
		"not json at all",
		"```json\n{broken\n```",
		`{"actions":[]}`,
		`[1,2,3]`,
		`{"reply": 42}`,
	} {
		_, err := ParseContract(text)
		if err == nil {
			t.Fatalf("expected error for %q", text)
		}
		if !errors.As(err, &ce) {
			t.Fatalf("expected ContractError for %q, got %T", text, err)
		}
	}
}
