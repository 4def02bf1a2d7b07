package llm

import (
	"fmt"

	"golang.org/x/time/rate"

	"docassist/internal/config"
)

// providerBurst is the shared request limiter's burst size.
const providerBurst = 10

// New builds the provider client selected by the configuration. All calls
// through the returned client share one rate limiter.
func New(cfg *config.Config) (Client, error) {
	limiter := rate.NewLimiter(rate.Limit(cfg.ProviderRPS), providerBurst)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.GenModel, cfg.EmbedModel, limiter), nil
	case config.ProviderOllama:
		return NewOllamaClient(cfg.OllamaBaseURL, cfg.GenModel, cfg.EmbedModel, limiter), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
