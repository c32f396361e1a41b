package ai

import (
	"encoding/json"
	"strings"
)

// Action is one typed side-effect request proposed by the model.
// Args stays untyped here; the executor validates per action type.
type Action struct {
	Type string         `json:"type"`
	Args map[string]any `json:"args"`
}

// Contract is the strict machine-readable shape the model must produce.
type Contract struct {
	Reply   string   `json:"reply"`
	Actions []Action `json:"actions"`
}

// ExtractText pulls the assistant text out of a provider's raw response.
// Exactly two shapes are recognized: Gemini's candidates path and the
// OpenAI-compatible choices path. Anything else is an error, not a default.
func ExtractText(raw map[string]any) (string, error) {
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if c0, ok := candidates[0].(map[string]any); ok {
			if content, ok := c0["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if p0, ok := parts[0].(map[string]any); ok {
						if text, ok := p0["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if c0, ok := choices[0].(map[string]any); ok {
			if message, ok := c0["message"].(map[string]any); ok {
				if text, ok := message["content"].(string); ok {
					return text, nil
				}
			}
		}
	}
	return "", ErrUnknownFormat
}

// ParseContract strips markdown fences and decodes the {reply, actions}
// contract. Strict about top-level decodability, permissive about action
// shape: missing actions default to empty, a missing reply is an error.
func ParseContract(text string) (Contract, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return Contract{}, &ContractError{Reason: "invalid json", Err: err}
	}
	if _, ok := probe["reply"]; !ok {
		return Contract{}, &ContractError{Reason: "missing reply"}
	}
	var c Contract
	if err := json.Unmarshal([]byte(cleaned), &c); err != nil {
		return Contract{}, &ContractError{Reason: "invalid contract shape", Err: err}
	}
	if c.Actions == nil {
		c.Actions = []Action{}
	}
	return c, nil
}
