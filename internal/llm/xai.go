package llm

import "fmt"

const defaultXAIBaseURL = "https://api.x.ai/v1"

// NewXAIProvider creates a provider targeting the xAI API. xAI exposes an
// OpenAI-compatible endpoint, so the OpenAI SDK is reused.
func NewXAIProvider(cfg XAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("xai API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultXAIBaseURL
	}

	p, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, err
	}
	p.name = "xai"
	return p, nil
}
