package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// KnownProviders is the fixed fallback order used when ai.provider is "auto".
var KnownProviders = []string{"gemini", "groq", "openrouter", "perplexity"}

// Config models counsellor.yml. It is built once at startup and never
// mutated afterwards; every component receives it by injection.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret       string `yaml:"jwt_secret"`
		TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	} `yaml:"auth"`
	AI struct {
		Provider              string         `yaml:"provider"`
		RequestTimeoutSeconds int            `yaml:"request_timeout_seconds"`
		Gemini                ProviderConfig `yaml:"gemini"`
		Groq                  ProviderConfig `yaml:"groq"`
		OpenRouter            ProviderConfig `yaml:"openrouter"`
		Perplexity            ProviderConfig `yaml:"perplexity"`
	} `yaml:"ai"`
}

// ProviderConfig is one backing model API.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run counsellor init or set COUNSELLOR_* env vars", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("config.auth.token_ttl_minutes must be positive")
	}
	if c.AI.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("config.ai.request_timeout_seconds must be positive")
	}
	if c.AI.Provider != "auto" && !isKnownProvider(c.AI.Provider) {
		return fmt.Errorf("config.ai.provider must be auto or one of %v", KnownProviders)
	}
	for name, p := range map[string]ProviderConfig{
		"gemini":     c.AI.Gemini,
		"groq":       c.AI.Groq,
		"openrouter": c.AI.OpenRouter,
		"perplexity": c.AI.Perplexity,
	} {
		if p.BaseURL == "" {
			return fmt.Errorf("config.ai.%s.base_url is required", name)
		}
	}
	return nil
}

func isKnownProvider(name string) bool {
	for _, p := range KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}

// Provider returns the config block for a known provider name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case "gemini":
		return c.AI.Gemini, true
	case "groq":
		return c.AI.Groq, true
	case "openrouter":
		return c.AI.OpenRouter, true
	case "perplexity":
		return c.AI.Perplexity, true
	}
	return ProviderConfig{}, false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "counsellor.yml")
}

// Default returns the default Config struct. API keys and the JWT secret
// are intentionally empty; they come from the file or the environment.
func Default() *Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Server.BasePath = "/v1"
	cfg.Auth.TokenTTLMinutes = 60 * 24
	cfg.AI.Provider = "auto"
	cfg.AI.RequestTimeoutSeconds = 30
	cfg.AI.Gemini = ProviderConfig{BaseURL: "https://generativelanguage.googleapis.com", Model: "gemini-1.5-flash"}
	cfg.AI.Groq = ProviderConfig{BaseURL: "https://api.groq.com", Model: "llama-3.1-8b-instant"}
	cfg.AI.OpenRouter = ProviderConfig{BaseURL: "https://openrouter.ai", Model: "meta-llama/llama-3.1-8b-instruct"}
	cfg.AI.Perplexity = ProviderConfig{BaseURL: "https://api.perplexity.ai", Model: "sonar"}
	return &cfg
}

// GenerateDefault returns default config YAML for counsellor init.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: ":8080"
  base_path: /v1

auth:
  jwt_secret: ""          # required; or COUNSELLOR_JWT_SECRET
  token_ttl_minutes: 1440

ai:
  provider: auto          # auto | gemini | groq | openrouter | perplexity
  request_timeout_seconds: 30
  gemini:
    base_url: https://generativelanguage.googleapis.com
    model: gemini-1.5-flash
    api_key: ""           # or COUNSELLOR_GEMINI_API_KEY
  groq:
    base_url: https://api.groq.com
    model: llama-3.1-8b-instant
    api_key: ""           # or COUNSELLOR_GROQ_API_KEY
  openrouter:
    base_url: https://openrouter.ai
    model: meta-llama/llama-3.1-8b-instruct
    api_key: ""           # or COUNSELLOR_OPENROUTER_API_KEY
  perplexity:
    base_url: https://api.perplexity.ai
    model: sonar
    api_key: ""           # or COUNSELLOR_PERPLEXITY_API_KEY
`
