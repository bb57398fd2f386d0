package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller -> retry -> logging -> base.
func NewProvider(ctx context.Context, cfg Config, eventRepo EventRecorder, logger *slog.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "google":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "xai":
		base, err = NewXAIProvider(cfg.XAI)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, eventRepo, logger)
	return WithRetry(logged, cfg.Retry), nil
}

// NewCompletionServiceFromConfig builds the full provider chain and wraps
// it in a CompletionService.
func NewCompletionServiceFromConfig(ctx context.Context, cfg Config, eventRepo EventRecorder, logger *slog.Logger) (*CompletionService, error) {
	p, err := NewProvider(ctx, cfg, eventRepo, logger)
	if err != nil {
		return nil, err
	}
	return NewCompletionService(p, cfg.Completion), nil
}
