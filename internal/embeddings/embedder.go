// Package embeddings turns text into vectors for semantic search. A local
// Ollama daemon is preferred; the hosted Hugging Face feature-extraction API
// serves as fallback when the daemon is unreachable.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quantforge/quantforge/internal/config"
)

// Backend produces an embedding for one text
type Backend interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client tries each backend in order and returns the first success.
// Implements evidence.Embedder.
type Client struct {
	backends   []Backend
	dimensions int
	logger     zerolog.Logger
}

// NewClient builds the embedding client from config: Ollama first, then
// Hugging Face when an endpoint is configured.
func NewClient(cfg config.EmbeddingsConfig, logger zerolog.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.GetTimeout()}

	var backends []Backend
	if cfg.OllamaURL != "" {
		backends = append(backends, &ollamaBackend{
			url:    strings.TrimRight(cfg.OllamaURL, "/"),
			model:  cfg.OllamaModel,
			client: httpClient,
		})
	}
	if cfg.HFEndpoint != "" {
		backends = append(backends, &huggingFaceBackend{
			endpoint: strings.TrimRight(cfg.HFEndpoint, "/"),
			model:    cfg.HFModel,
			apiKey:   cfg.HFAPIKey,
			client:   httpClient,
		})
	}

	return &Client{
		backends:   backends,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}
}

// Embed returns the embedding for text, walking backends in priority order
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(c.backends) == 0 {
		return nil, fmt.Errorf("no embedding backends configured")
	}

	var lastErr error
	for _, backend := range c.backends {
		vec, err := backend.Embed(ctx, text)
		if err != nil {
			c.logger.Warn().Err(err).Str("backend", backend.Name()).Msg("Embedding backend failed")
			lastErr = err
			continue
		}
		if c.dimensions > 0 && len(vec) != c.dimensions {
			lastErr = fmt.Errorf("%s returned %d dimensions, expected %d", backend.Name(), len(vec), c.dimensions)
			c.logger.Warn().Err(lastErr).Msg("Embedding dimension mismatch")
			continue
		}
		return vec, nil
	}

	return nil, fmt.Errorf("all embedding backends failed: %w", lastErr)
}

// EmbedBatch embeds each text in order, failing on the first error
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// ollamaBackend calls the local Ollama embeddings endpoint
type ollamaBackend struct {
	url    string
	model  string
	client *http.Client
}

func (b *ollamaBackend) Name() string { return "ollama" }

func (b *ollamaBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]string{
		"model":  b.model,
		"prompt": text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embeddings returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}

	return parsed.Embedding, nil
}

// huggingFaceBackend calls the hosted feature-extraction pipeline
type huggingFaceBackend struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

func (b *huggingFaceBackend) Name() string { return "huggingface" }

func (b *huggingFaceBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"inputs": text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", b.endpoint, b.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface embeddings request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface embeddings returned status %d", resp.StatusCode)
	}

	return decodeFeatureVector(data)
}

// decodeFeatureVector handles both response shapes of the feature-extraction
// pipeline: a flat vector, or a batch holding a single vector.
func decodeFeatureVector(data []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(data, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	var nested [][]float32
	if err := json.Unmarshal(data, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}

	return nil, fmt.Errorf("unexpected embedding response shape")
}
