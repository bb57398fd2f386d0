package llm

import (
	"context"
	"strings"
)

// CompletionConfig holds the request parameters used for plain-text
// completions.
type CompletionConfig struct {
	System      string
	MaxTokens   int
	Temperature float64
}

// DefaultCompletionConfig returns the tutor's default completion settings.
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		MaxTokens:   1024,
		Temperature: 0.7,
	}
}

// CompletionService turns a prompt into text. It is the single entry point
// the tutor uses to reach a model; retries happen in the provider chain
// beneath it.
type CompletionService struct {
	provider Provider
	cfg      CompletionConfig
}

// NewCompletionService creates a CompletionService over p.
func NewCompletionService(p Provider, cfg CompletionConfig) *CompletionService {
	return &CompletionService{provider: p, cfg: cfg}
}

// Generate sends prompt as a single user message and returns the trimmed
// text of the reply. After retries are exhausted the error is a
// *GenerationFailure.
func (s *CompletionService) Generate(ctx context.Context, prompt string) (string, error) {
	return s.complete(ctx, prompt, nil)
}

// GenerateJSON is Generate with structured output: the provider is asked
// for JSON matching schema and rejects replies that do not validate.
// Callers still decode the text themselves, since not every provider
// enforces the schema server-side.
func (s *CompletionService) GenerateJSON(ctx context.Context, prompt string, schema *Schema) (string, error) {
	return s.complete(ctx, prompt, schema)
}

func (s *CompletionService) complete(ctx context.Context, prompt string, schema *Schema) (string, error) {
	resp, err := s.provider.Generate(ctx, Request{
		System:      s.cfg.System,
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Schema:      schema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// ModelID returns the identifier of the model behind the service.
func (s *CompletionService) ModelID() string {
	return s.provider.ModelID()
}
