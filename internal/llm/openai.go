package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// OpenAIProvider adapts the hosted chat-completions API. Paid, so it sits
// behind the free tier in the fallback priority order.
type OpenAIProvider struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

// OpenAIConfig configures the hosted chat-completions provider
type OpenAIConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// NewOpenAIProvider creates a hosted chat-completions provider
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &OpenAIProvider{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements Provider
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete implements Provider
func (p *OpenAIProvider) Complete(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	log.Debug().
		Str("provider", p.Name()).
		Str("model", p.model).
		Int("message_count", len(messages)).
		Msg("Sending generation request")

	start := time.Now()
	data, err := doJSON(ctx, p.httpClient, p.Name(), p.endpoint, headers, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ProviderError{Provider: p.Name(), StatusCode: http.StatusOK, Body: "unparseable response body"}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.Name(), StatusCode: http.StatusOK, Body: "no choices in response"}
	}

	log.Debug().
		Str("provider", p.Name()).
		Str("model", resp.Model).
		Int("total_tokens", resp.Usage.TotalTokens).
		Dur("duration", time.Since(start)).
		Msg("Generation request completed")

	return &GenerationResult{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Provider:   p.Name(),
		Model:      p.model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
