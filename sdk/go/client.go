package counsellorsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Counsellor HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 60 * time.Second,
	}
}

// User is the API user model.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Auth is a token plus the authenticated user.
type Auth struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ActionResult reports one executed (or failed) chat action.
type ActionResult struct {
	Type   string         `json:"type"`
	Args   map[string]any `json:"args,omitempty"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Snapshot is the stage view returned after each chat call.
type Snapshot struct {
	Stage     int              `json:"stage"`
	Profile   map[string]any   `json:"profile"`
	Shortlist []map[string]any `json:"shortlist"`
	Tasks     []map[string]any `json:"tasks"`
}

// ChatResult is a counsellor reply with its side effects.
type ChatResult struct {
	Reply    string         `json:"reply"`
	Actions  []ActionResult `json:"actions"`
	Snapshot Snapshot       `json:"snapshot"`
}

// Turn is one conversation history entry.
type Turn struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Signup registers a user and stores the returned bearer token.
func (c *Client) Signup(ctx context.Context, name, email, password string) (Auth, error) {
	var resp Auth
	err := c.do(ctx, http.MethodPost, "v1/auth/signup", map[string]any{
		"name": name, "email": email, "password": password,
	}, &resp)
	if err == nil {
		c.BearerToken = resp.Token
	}
	return resp, err
}

// Login authenticates and stores the returned bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (Auth, error) {
	var resp Auth
	err := c.do(ctx, http.MethodPost, "v1/auth/login", map[string]any{
		"email": email, "password": password,
	}, &resp)
	if err == nil {
		c.BearerToken = resp.Token
	}
	return resp, err
}

// Chat sends one message through the counsellor pipeline.
func (c *Client) Chat(ctx context.Context, message string) (ChatResult, error) {
	var resp ChatResult
	err := c.do(ctx, http.MethodPost, "v1/ai/chat", map[string]any{"message": message}, &resp)
	return resp, err
}

// History returns the conversation so far, oldest first.
func (c *Client) History(ctx context.Context) ([]Turn, error) {
	var resp struct {
		Messages []Turn `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, "v1/ai/history", nil, &resp)
	return resp.Messages, err
}

// CompleteOnboarding flips the onboarding gate for the current user.
func (c *Client) CompleteOnboarding(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "v1/profile/complete", nil, nil)
}

// ShortlistUniversity adds a university to the shortlist.
func (c *Client) ShortlistUniversity(ctx context.Context, universityID string) (map[string]any, error) {
	var resp map[string]any
	err := c.do(ctx, http.MethodPost, "v1/universities/shortlist", map[string]any{
		"universityId": universityID,
	}, &resp)
	return resp, err
}

// Dashboard fetches the current stage snapshot.
func (c *Client) Dashboard(ctx context.Context) (Snapshot, error) {
	var resp Snapshot
	err := c.do(ctx, http.MethodGet, "v1/dashboard", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	u := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
