package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"counsellor/internal/config"
	"counsellor/internal/db"
	"counsellor/internal/engine"
	"counsellor/internal/migrate"
	"counsellor/internal/server"
)

type scriptedModel struct {
	contract string
}

func (m *scriptedModel) GenerateRaw(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": m.contract}},
		},
	}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *scriptedModel) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	model := &scriptedModel{contract: `{"reply":"hello","actions":[]}`}
	eng := engine.New(conn, config.Default(), model)
	handler, err := server.New(server.Config{
		Engine:   eng,
		BasePath: "/v1",
		Auth:     server.AuthConfig{JWTSecret: "test-secret", TokenTTLMinutes: 60},
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, model
}

func doJSON(t *testing.T, method, url, token string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp
}

type authBody struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func signup(t *testing.T, srv *httptest.Server) authBody {
	t.Helper()
	var auth authBody
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/signup", "", map[string]any{
		"name": "Asha", "email": "asha@example.com", "password": "hunter2hunter2",
	}, &auth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status %d", resp.StatusCode)
	}
	if auth.Token == "" || auth.User.ID == "" {
		t.Fatalf("auth body %+v", auth)
	}
	return auth
}

func TestSignupLoginAndMe(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signup(t, srv)

	var login authBody
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]any{
		"email": "asha@example.com", "password": "hunter2hunter2",
	}, &login)
	if resp.StatusCode != http.StatusOK || login.Token == "" {
		t.Fatalf("login status %d body %+v", resp.StatusCode, login)
	}

	var me struct {
		Email string `json:"email"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/auth/me", login.Token, nil, &me)
	if resp.StatusCode != http.StatusOK || me.Email != "asha@example.com" {
		t.Fatalf("me status %d body %+v", resp.StatusCode, me)
	}

	// wrong password is a 401, not a 404
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]any{
		"email": "asha@example.com", "password": "wrong-password",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", resp.StatusCode)
	}
	_ = auth
}

func TestChatRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/ai/chat", "", map[string]any{"message": "hi"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestChatAndHistoryEndToEnd(t *testing.T) {
	srv, model := newTestServer(t)
	auth := signup(t, srv)
	model.contract = `{"reply":"Welcome! What is your education level?","actions":[]}`

	var chat struct {
		Reply    string           `json:"reply"`
		Actions  []map[string]any `json:"actions"`
		Snapshot struct {
			Stage int `json:"stage"`
		} `json:"snapshot"`
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/ai/chat", auth.Token, map[string]any{
		"message": "hi, I want to study abroad",
	}, &chat)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status %d", resp.StatusCode)
	}
	if chat.Reply != "Welcome! What is your education level?" {
		t.Fatalf("reply %q", chat.Reply)
	}
	if chat.Snapshot.Stage != 1 {
		t.Fatalf("stage %d", chat.Snapshot.Stage)
	}

	var history struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/ai/history", auth.Token, nil, &history)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status %d", resp.StatusCode)
	}
	if len(history.Messages) != 2 {
		t.Fatalf("messages %+v", history.Messages)
	}
	if history.Messages[0].Role != "user" || history.Messages[1].Role != "assistant" {
		t.Fatalf("order %+v", history.Messages)
	}
}

func TestChatEmptyMessageRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signup(t, srv)
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/ai/chat", auth.Token, map[string]any{"message": "   "}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestDiscoverBeforeOnboarding(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signup(t, srv)
	resp := doJSON(t, http.MethodGet, srv.URL+"/v1/universities/discover", auth.Token, nil, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestOnboardingFlowOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := signup(t, srv)

	resp := doJSON(t, http.MethodPut, srv.URL+"/v1/profile", auth.Token, map[string]any{
		"gpa": 3.5, "budgetPerYear": 40000, "preferredCountries": []string{"Canada"},
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status %d", resp.StatusCode)
	}
	var profile struct {
		OnboardingCompleted bool `json:"onboardingCompleted"`
	}
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/profile/complete", auth.Token, nil, &profile)
	if resp.StatusCode != http.StatusOK || !profile.OnboardingCompleted {
		t.Fatalf("complete status %d body %+v", resp.StatusCode, profile)
	}

	var stage struct {
		Stage int `json:"stage"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/stage", auth.Token, nil, &stage)
	if resp.StatusCode != http.StatusOK || stage.Stage != 2 {
		t.Fatalf("stage status %d body %+v", resp.StatusCode, stage)
	}
}
