package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "openai", "anthropic", "google", "xai", "mock"
	Provider string

	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	XAI       XAIConfig
	Retry     RetryConfig

	// Completion holds the defaults applied to every tutor prompt.
	Completion CompletionConfig
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for OpenAI-compatible APIs.
}

// GeminiConfig holds Google Gemini configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// XAIConfig holds xAI configuration. xAI serves an OpenAI-compatible API.
type XAIConfig struct {
	APIKey  string
	Model   string // Default: "grok-3-mini"
	BaseURL string // Default: "https://api.x.ai/v1"
}

// RetryConfig configures retry behavior for failed generations.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig waits 2^attempt seconds between up to three attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Second,
		MaxWait:     0,
		Multiplier:  2.0,
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		XAI: XAIConfig{
			Model: "grok-3-mini",
		},
		Retry:      DefaultRetryConfig(),
		Completion: DefaultCompletionConfig(),
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values. LLM_MODEL applies to whichever provider
// LLM_PROVIDER selects.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if p := os.Getenv("LLM_PROVIDER"); p != "" {
		cfg.Provider = p
	}

	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAI.BaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Gemini.APIKey = os.Getenv("GOOGLE_API_KEY")
	cfg.XAI.APIKey = os.Getenv("XAI_API_KEY")

	if m := os.Getenv("LLM_MODEL"); m != "" {
		switch cfg.Provider {
		case "openai":
			cfg.OpenAI.Model = m
		case "anthropic":
			cfg.Anthropic.Model = m
		case "google":
			cfg.Gemini.Model = m
		case "xai":
			cfg.XAI.Model = m
		}
	}

	return cfg
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
	case "google":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required when LLM_PROVIDER=google")
		}
	case "xai":
		if c.XAI.APIKey == "" {
			return fmt.Errorf("XAI_API_KEY is required when LLM_PROVIDER=xai")
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
