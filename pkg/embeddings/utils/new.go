// Package embeddingutils builds an embeddings.Embedder from configuration.
package embeddingutils

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/embeddings"
	"github.com/papercomputeco/graphchat/pkg/embeddings/ollama"
	"github.com/papercomputeco/graphchat/pkg/embeddings/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// APIKey falls back to OPENAI_API_KEY for the openai provider.
	APIKey     string
	Dimensions int

	Logger *zap.Logger
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case ProviderOpenAI, "":
		key := o.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     key,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
			Logger:     o.Logger,
		})
	case ProviderOllama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Logger:  o.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
