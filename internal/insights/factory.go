package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"prosperdash/internal/config"
)

// NewClient selects and builds a provider from configuration plus the
// runtime env. An explicit provider must have a key; "auto" (or empty)
// picks whichever provider has credentials, OpenAI first.
func NewClient(ctx context.Context, cfg *config.Config, env *config.RuntimeEnv, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	switch provider {
	case "openai":
		key := firstNonEmpty(cfg.LLM.APIKey, env.OpenAIKey())
		if key == "" {
			return nil, errors.New("provider openai selected but no API key found (set OPENAI_API_KEY)")
		}
		logger.Debug("llm provider selected", zap.String("provider", "openai"))
		return NewOpenAIClient(key, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Temperature)

	case "gemini":
		key := firstNonEmpty(cfg.LLM.APIKey, env.GeminiKey())
		if key == "" {
			return nil, errors.New("provider gemini selected but no API key found (set GEMINI_API_KEY)")
		}
		logger.Debug("llm provider selected", zap.String("provider", "gemini"))
		return NewGeminiClient(ctx, key, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Temperature)

	case "", "auto":
		if key := env.OpenAIKey(); key != "" {
			logger.Debug("llm provider detected", zap.String("provider", "openai"))
			return NewOpenAIClient(key, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Temperature)
		}
		if key := env.GeminiKey(); key != "" {
			logger.Debug("llm provider detected", zap.String("provider", "gemini"))
			return NewGeminiClient(ctx, key, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Temperature)
		}
		return nil, errors.New("no LLM credentials found: set OPENAI_API_KEY or GEMINI_API_KEY")

	default:
		return nil, fmt.Errorf("unknown llm provider %q (openai, gemini, or auto)", cfg.LLM.Provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
