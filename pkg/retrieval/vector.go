package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/embeddings"
	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/vector"
)

// DefaultTopK is the number of documents similarity search returns.
const DefaultTopK = 5

const vectorDescription = "For finding movies by plot, theme or mood, and for " +
	"recommendations based on a description of what the user wants to watch."

// VectorConfig configures a VectorPipeline.
type VectorConfig struct {
	Embedder embeddings.Embedder
	Store    vector.Driver

	// TopK defaults to DefaultTopK.
	TopK int

	// Description overrides the routing description.
	Description string
}

// VectorPipeline retrieves the documents most similar to the question.
type VectorPipeline struct {
	embedder    embeddings.Embedder
	store       vector.Driver
	topK        int
	description string
	logger      *zap.Logger
}

var _ Pipeline = (*VectorPipeline)(nil)

func NewVectorPipeline(c VectorConfig, logger *zap.Logger) *VectorPipeline {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.Description == "" {
		c.Description = vectorDescription
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorPipeline{
		embedder:    c.Embedder,
		store:       c.Store,
		topK:        c.TopK,
		description: c.Description,
		logger:      logger,
	}
}

func (p *VectorPipeline) Name() history.Source { return history.SourceVector }

func (p *VectorPipeline) Description() string { return p.description }

// document mirrors the shape documents are handed to the composer in.
type document struct {
	PageContent string         `json:"pageContent"`
	Metadata    map[string]any `json:"metadata"`
}

// Retrieve embeds the question and searches the store. The context is a
// JSON array of documents, even when only one was found.
func (p *VectorPipeline) Retrieve(ctx context.Context, in Input) (*Retrieval, error) {
	question := in.Question()

	embedding, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding question: %w", ErrRetrieval, err)
	}

	results, err := p.store.Query(ctx, embedding, p.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %w", ErrRetrieval, err)
	}

	docs := make([]document, len(results))
	ids := make([]string, 0, len(results))
	for i, r := range results {
		meta := r.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		docs[i] = document{PageContent: r.Content, Metadata: meta}
		ids = append(ids, r.SourceID())
	}

	serialized, err := marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("%w: serializing documents: %w", ErrRetrieval, err)
	}

	p.logger.Debug("vector retrieval",
		zap.String("question", question),
		zap.Int("documents", len(docs)),
	)
	return &Retrieval{
		Source:    history.SourceVector,
		Context:   serialized,
		SourceIDs: ids,
	}, nil
}
