// Package vector provides interfaces and implementations for similarity search
// over embedded documents.
package vector

import "context"

// IDKey is the metadata key holding a document's provenance id, typically the
// element id of the graph node the document was embedded from.
const IDKey = "_id"

// Document represents a stored item with its text, metadata and embedding.
type Document struct {
	// ID is a unique identifier for the document within the store.
	ID string

	// Content is the embedded text.
	Content string

	// Metadata is arbitrary JSON-compatible data stored with the document.
	Metadata map[string]any

	// Embedding is the vector representation of Content.
	Embedding []float32
}

// SourceID returns the document's provenance id: the IDKey metadata value
// when present, otherwise ID.
func (d Document) SourceID() string {
	if v, ok := d.Metadata[IDKey].(string); ok && v != "" {
		return v
	}
	return d.ID
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
