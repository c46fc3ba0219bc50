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

// HuggingFaceProvider adapts the hosted text-generation inference API.
// Free tier, so it sits first in the fallback priority order.
type HuggingFaceProvider struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

// HuggingFaceConfig configures the hosted inference provider
type HuggingFaceConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// NewHuggingFaceProvider creates a hosted inference provider
func NewHuggingFaceProvider(cfg HuggingFaceConfig) *HuggingFaceProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api-inference.huggingface.co/models"
	}
	if cfg.Model == "" {
		cfg.Model = "mistralai/Mistral-7B-Instruct-v0.2"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HuggingFaceProvider{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements Provider
func (p *HuggingFaceProvider) Name() string { return "huggingface" }

// Complete implements Provider. The inference API has no separate system role,
// so the system message is prepended to the prompt.
func (p *HuggingFaceProvider) Complete(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	fullPrompt := req.Prompt
	if req.System != "" {
		fullPrompt = req.System + "\n\n" + req.Prompt
	}

	payload := map[string]interface{}{
		"inputs": fullPrompt,
		"parameters": map[string]interface{}{
			"max_new_tokens":   req.MaxTokens,
			"temperature":      req.Temperature,
			"return_full_text": false,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.endpoint + "/" + p.model
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	log.Debug().
		Str("provider", p.Name()).
		Str("model", p.model).
		Msg("Sending generation request")

	data, err := doJSON(ctx, p.httpClient, p.Name(), url, headers, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	text, err := decodeGeneratedText(data)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), StatusCode: http.StatusOK, Body: err.Error()}
	}

	return &GenerationResult{
		Text:       strings.TrimSpace(text),
		Provider:   p.Name(),
		Model:      p.model,
		TokensUsed: len(strings.Fields(text)), // API reports no usage, approximate
	}, nil
}

// decodeGeneratedText handles the API's two response shapes: a list of
// generations or a single object.
func decodeGeneratedText(data []byte) (string, error) {
	var asList []hfGenerated
	if err := json.Unmarshal(data, &asList); err == nil {
		if len(asList) == 0 {
			return "", fmt.Errorf("empty generation list")
		}
		return asList[0].GeneratedText, nil
	}

	var asObject hfGenerated
	if err := json.Unmarshal(data, &asObject); err != nil {
		return "", fmt.Errorf("unrecognized response shape: %w", err)
	}
	return asObject.GeneratedText, nil
}
