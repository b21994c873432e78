// Package neo4jvec provides a vector.Driver over a Neo4j vector index, so
// retrieved documents carry the element id of the node they were embedded
// from.
package neo4jvec

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/graph"
	"github.com/papercomputeco/graphchat/pkg/vector"
)

// Defaults match the movie plot index.
const (
	DefaultIndexName         = "moviePlots"
	DefaultNodeLabel         = "Movie"
	DefaultTextProperty      = "plot"
	DefaultEmbeddingProperty = "plotEmbedding"
	DefaultIDProperty        = "tmdbId"
)

// Config names the index and the node properties it covers.
type Config struct {
	IndexName         string
	NodeLabel         string
	TextProperty      string
	EmbeddingProperty string
	IDProperty        string

	// Dimensions, when non-zero, creates the index if it is missing.
	Dimensions int
}

func (c *Config) defaults() {
	if c.IndexName == "" {
		c.IndexName = DefaultIndexName
	}
	if c.NodeLabel == "" {
		c.NodeLabel = DefaultNodeLabel
	}
	if c.TextProperty == "" {
		c.TextProperty = DefaultTextProperty
	}
	if c.EmbeddingProperty == "" {
		c.EmbeddingProperty = DefaultEmbeddingProperty
	}
	if c.IDProperty == "" {
		c.IDProperty = DefaultIDProperty
	}
}

// Driver implements vector.Driver on a graph.Graph.
type Driver struct {
	graph  graph.Graph
	cfg    Config
	logger *zap.Logger
}

var _ vector.Driver = (*Driver)(nil)

// NewDriver wraps g, which stays owned by the caller.
func NewDriver(ctx context.Context, g graph.Graph, c Config, logger *zap.Logger) (*Driver, error) {
	if g == nil {
		return nil, errors.New("graph is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c.defaults()

	d := &Driver{graph: g, cfg: c, logger: logger}

	if c.Dimensions > 0 {
		if _, err := g.Query(ctx, d.indexQuery(), map[string]any{"dimensions": c.Dimensions}, graph.AccessModeWrite); err != nil {
			return nil, fmt.Errorf("creating vector index %s: %w", c.IndexName, err)
		}
	}

	logger.Info("neo4j vector driver initialized",
		zap.String("index", c.IndexName),
		zap.String("label", c.NodeLabel),
	)
	return d, nil
}

// Add merges one node per document and sets its vector property.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	params := make([]map[string]any, len(docs))
	for i, doc := range docs {
		meta := make(map[string]any, len(doc.Metadata))
		maps.Copy(meta, doc.Metadata)
		// element ids are assigned by the database
		delete(meta, vector.IDKey)

		params[i] = map[string]any{
			"id":        doc.ID,
			"content":   doc.Content,
			"metadata":  meta,
			"embedding": doc.Embedding,
		}
	}

	if _, err := d.graph.Query(ctx, d.upsertQuery(), map[string]any{
		"docs":              params,
		"embeddingProperty": d.cfg.EmbeddingProperty,
	}, graph.AccessModeWrite); err != nil {
		return fmt.Errorf("upserting documents: %w", err)
	}
	return nil
}

// Query runs db.index.vector.queryNodes.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	rows, err := d.graph.Query(ctx, d.searchQuery(), map[string]any{
		"index":     d.cfg.IndexName,
		"k":         topK,
		"embedding": embedding,
	}, graph.AccessModeRead)
	if err != nil {
		return nil, fmt.Errorf("querying vector index %s: %w", d.cfg.IndexName, err)
	}

	results := make([]vector.QueryResult, 0, len(rows))
	for _, row := range rows {
		score, _ := row["score"].(float64)
		results = append(results, vector.QueryResult{
			Document: rowToDocument(row),
			Score:    float32(score),
		})
	}

	d.logger.Debug("queried neo4j vector index",
		zap.String("index", d.cfg.IndexName),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Get retrieves documents by id property or element id.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := d.graph.Query(ctx, d.getQuery(), map[string]any{"ids": ids}, graph.AccessModeRead)
	if err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, 0, len(rows))
	for _, row := range rows {
		doc := rowToDocument(row)
		doc.Embedding = toFloat32s(row["embedding"])
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete detach-deletes the document nodes.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := d.graph.Query(ctx, d.deleteQuery(), map[string]any{"ids": ids}, graph.AccessModeWrite); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

// Close is a no-op; the graph belongs to the caller.
func (d *Driver) Close() error {
	return nil
}

func rowToDocument(row graph.Row) vector.Document {
	doc := vector.Document{
		ID:      fmt.Sprint(row["id"]),
		Content: stringOf(row["text"]),
	}
	if meta, ok := row["metadata"].(map[string]any); ok {
		doc.Metadata = make(map[string]any, len(meta))
		for k, v := range meta {
			if v != nil {
				doc.Metadata[k] = v
			}
		}
	}
	return doc
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toFloat32s(v any) []float32 {
	switch vals := v.(type) {
	case []float32:
		return vals
	case []float64:
		out := make([]float32, len(vals))
		for i, f := range vals {
			out[i] = float32(f)
		}
		return out
	case []any:
		out := make([]float32, 0, len(vals))
		for _, e := range vals {
			if f, ok := e.(float64); ok {
				out = append(out, float32(f))
			}
		}
		return out
	default:
		return nil
	}
}
