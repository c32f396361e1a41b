package ai

import (
	"context"
	"errors"
	"testing"
)

type stubClient struct {
	name  string
	raw   map[string]any
	err   error
	calls int
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) GenerateRaw(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.raw, nil
}

func TestRouterAutoFallsBackToFirstSuccess(t *testing.T) {
	a := &stubClient{name: "a", err: errors.New("down")}
	b := &stubClient{name: "b", raw: map[string]any{"ok": true}}
	c := &stubClient{name: "c", raw: map[string]any{"ok": "never"}}
	r := NewRouterWithClients("auto", a, b, c)

	raw, err := r.GenerateRaw(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if raw["ok"] != true {
		t.Fatalf("wrong response: %+v", raw)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 0 {
		t.Fatalf("call counts a=%d b=%d c=%d", a.calls, b.calls, c.calls)
	}
}

func TestRouterAutoAllFail(t *testing.T) {
	a := &stubClient{name: "a", err: errors.New("down a")}
	b := &stubClient{name: "b", err: errors.New("down b")}
	r := NewRouterWithClients("auto", a, b)

	_, err := r.GenerateRaw(context.Background(), "sys", "user")
	var all *AllProvidersFailedError
	if !errors.As(err, &all) {
		t.Fatalf("expected AllProvidersFailedError, got %v", err)
	}
	if all.Last == nil || all.Last.Error() != "down b" {
		t.Fatalf("expected last cause from b, got %v", all.Last)
	}
}

func TestRouterPinnedProvider(t *testing.T) {
	a := &stubClient{name: "a", raw: map[string]any{"from": "a"}}
	b := &stubClient{name: "b", raw: map[string]any{"from": "b"}}
	r := NewRouterWithClients("b", a, b)

	raw, err := r.GenerateRaw(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if raw["from"] != "b" {
		t.Fatalf("expected pinned provider b, got %+v", raw)
	}
	if a.calls != 0 {
		t.Fatalf("a should not be called when b is pinned")
	}
}

func TestRouterPinnedUnknownProvider(t *testing.T) {
	r := NewRouterWithClients("mystery", &stubClient{name: "a"})
	_, err := r.GenerateRaw(context.Background(), "sys", "user")
	var unknown *UnknownProviderError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownProviderError, got %v", err)
	}
}

func TestRouterPinnedFailureNotSwallowed(t *testing.T) {
	a := &stubClient{name: "a", err: errors.New("down")}
	b := &stubClient{name: "b", raw: map[string]any{"ok": true}}
	r := NewRouterWithClients("a", a, b)

	if _, err := r.GenerateRaw(context.Background(), "sys", "user"); err == nil {
		t.Fatalf("pinned provider failure must propagate")
	}
	if b.calls != 0 {
		t.Fatalf("no fallback in pinned mode")
	}
}
