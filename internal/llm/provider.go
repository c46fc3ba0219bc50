package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Provider is one interchangeable text-generation backend. Adapters normalize
// their wire protocol into GenerationResult; protocol variance stays behind
// this interface.
type Provider interface {
	// Name returns the stable provider identifier ("huggingface", "openai", "ollama")
	Name() string

	// Complete sends one prompt to the backend and returns the normalized result.
	// Fails with *ProviderError on non-2xx status and *TransportError on
	// connection/timeout problems.
	Complete(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// completeWithRetry retries a provider call on transient transport errors only.
// maxRetries is the number of additional attempts after the first.
func completeWithRetry(ctx context.Context, p Provider, req GenerationRequest, maxRetries int) (*GenerationResult, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			log.Warn().
				Err(lastErr).
				Str("provider", p.Name()).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying LLM request")

			select {
			case <-ctx.Done():
				return nil, &TransportError{Provider: p.Name(), Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		result, err := p.Complete(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Provider errors (bad status, bad payload) are not retried in place.
		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// doJSON posts a JSON body and returns the raw response bytes, mapping
// failures into the typed error taxonomy.
func doJSON(ctx context.Context, client *http.Client, providerName, url string, headers map[string]string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: providerName, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	return data, nil
}
