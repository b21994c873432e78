// Package openai implements embeddings.Embedder on the OpenAI /v1/embeddings
// endpoint, or any server compatible with it.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/embeddings"
)

const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultBaseURL        = "https://api.openai.com"
)

// Embedder wraps the OpenAI embeddings API.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	logger     *zap.Logger
}

var _ embeddings.Embedder = (*Embedder)(nil)

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// Dimensions optionally shortens text-embedding-3 vectors.
	Dimensions int

	HTTPClient *http.Client
	Logger     *zap.Logger
}

type embedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder creates an OpenAI embedder. An API key is required.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder requires an API key")
	}

	e := &Embedder{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
	if e.baseURL == "" {
		e.baseURL = DefaultBaseURL
	}
	if e.model == "" {
		e.model = DefaultEmbeddingModel
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: embeddings.DefaultTimeout}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	err := embeddings.PostJSON(ctx, e.httpClient, e.baseURL+"/v1/embeddings",
		map[string]string{"Authorization": "Bearer " + e.apiKey},
		embedRequest{Model: e.model, Input: text, Dimensions: e.dimensions}, &resp)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: %w: no embeddings returned", embeddings.ErrEmbedding)
	}

	e.logger.Debug("embedded text",
		zap.String("provider", "openai"),
		zap.String("model", e.model),
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
	)
	return resp.Data[0].Embedding, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}
