package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider adapts a local generation daemon. Last resort in the
// fallback chain; always configured since it needs no credentials.
type OllamaProvider struct {
	url        string
	model      string
	httpClient *http.Client
}

// OllamaLocalConfig configures the local generation daemon
type OllamaLocalConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// NewOllamaProvider creates a local daemon provider
func NewOllamaProvider(cfg OllamaLocalConfig) *OllamaProvider {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1:8b"
	}
	if cfg.Timeout == 0 {
		// Local inference is slow compared to hosted APIs
		cfg.Timeout = 60 * time.Second
	}

	return &OllamaProvider{
		url:        strings.TrimRight(cfg.URL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements Provider
func (p *OllamaProvider) Name() string { return "ollama" }

// Complete implements Provider. The daemon has no chat roles on the generate
// endpoint, so the system message is folded into the prompt.
func (p *OllamaProvider) Complete(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	fullPrompt := req.Prompt
	if req.System != "" {
		fullPrompt = fmt.Sprintf("%s\n\nUser: %s\nAssistant:", req.System, req.Prompt)
	}

	payload := ollamaRequest{
		Model:  p.model,
		Prompt: fullPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	data, err := doJSON(ctx, p.httpClient, p.Name(), p.url+"/api/generate", nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp ollamaResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ProviderError{Provider: p.Name(), StatusCode: http.StatusOK, Body: "unparseable response body"}
	}

	tokens := resp.EvalCount
	if tokens == 0 {
		tokens = len(strings.Fields(resp.Response))
	}

	return &GenerationResult{
		Text:       strings.TrimSpace(resp.Response),
		Provider:   p.Name(),
		Model:      p.model,
		TokensUsed: tokens,
	}, nil
}
