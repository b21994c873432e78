// Package ollama implements embeddings.Embedder on Ollama's /api/embed endpoint.
package ollama

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Embedder wraps Ollama's embedding API.
type Embedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Ensure Embedder implements embeddings.Embedder
var _ embeddings.Embedder = (*Embedder)(nil)

// EmbedderConfig holds configuration for the Ollama embedder.
type EmbedderConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	HTTPClient *http.Client
	Logger     *zap.Logger
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder creates a new embedder using Ollama's embedding API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	e := &Embedder{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
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
	if err := embeddings.PostJSON(ctx, e.httpClient, e.baseURL+"/api/embed", nil,
		embedRequest{Model: e.model, Input: text}, &resp); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama: %w: no embeddings returned", embeddings.ErrEmbedding)
	}

	e.logger.Debug("embedded text",
		zap.String("provider", "ollama"),
		zap.String("model", e.model),
		zap.Int("dimensions", len(resp.Embeddings[0])),
	)
	return resp.Embeddings[0], nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}
