package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Router walks a static priority order of providers until one answers.
// Providers missing credentials are excluded at construction, not per-call.
// The router keeps no state between calls: every invocation independently
// walks the full list, and providers are never tried concurrently.
type Router struct {
	providers  []Provider
	maxRetries int // transport retries per provider before falling through
}

// RouterConfig configures the fallback router
type RouterConfig struct {
	Providers  []Provider
	MaxRetries int
}

// NewRouter creates a fallback router over the given providers, in priority order
func NewRouter(cfg RouterConfig) *Router {
	names := make([]string, len(cfg.Providers))
	for i, p := range cfg.Providers {
		names[i] = p.Name()
	}
	log.Info().Strs("providers", names).Msg("LLM fallback chain configured")

	return &Router{
		providers:  cfg.Providers,
		maxRetries: cfg.MaxRetries,
	}
}

// Providers returns the configured provider names in priority order
func (r *Router) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Generate tries each provider in priority order and returns the first
// success, annotated with the provider that answered. On total exhaustion it
// fails with *AllProvidersExhaustedError carrying the last provider's error.
func (r *Router) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	var lastErr error
	attempted := make([]string, 0, len(r.providers))

	for i, provider := range r.providers {
		attempted = append(attempted, provider.Name())

		log.Debug().
			Str("provider", provider.Name()).
			Int("attempt", i+1).
			Int("total_providers", len(r.providers)).
			Msg("Attempting LLM generation")

		start := time.Now()
		result, err := completeWithRetry(ctx, provider, req, r.maxRetries)
		duration := time.Since(start)

		if err == nil {
			log.Info().
				Str("provider", provider.Name()).
				Str("model", result.Model).
				Int("tokens_used", result.TokensUsed).
				Dur("duration", duration).
				Msg("LLM generation succeeded")
			return result, nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("provider", provider.Name()).
			Dur("duration", duration).
			Msg("LLM generation failed, trying next provider")
	}

	return nil, &AllProvidersExhaustedError{
		Attempts: attempted,
		LastErr:  lastErr,
	}
}
