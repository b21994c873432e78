// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for graphchat documents.
	DefaultCollectionName = "graphchat"

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *zap.Logger
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds attempts to reach the collection at startup, for
	// servers that are still booting. Defaults to 1.
	MaxRetries int

	// RetryDelay is the first backoff delay, doubled per attempt up to
	// MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, creating the collection if it
// does not exist.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	collectionID, err := d.connect(ctx, c)
	if err != nil {
		return nil, err
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
		zap.String("collection_id", collectionID),
	)

	return d, nil
}

// connect resolves the collection, retrying with exponential backoff.
func (d *Driver) connect(ctx context.Context, c Config) (string, error) {
	attempts := max(c.MaxRetries, 1)
	delay := c.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		id, err := d.getOrCreateCollection(ctx)
		if err == nil {
			return id, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		d.logger.Warn("chroma not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxDelay)
	}

	return "", fmt.Errorf("%w: getting or creating collection %q after %d attempts: %w",
		vector.ErrConnection, d.collectionName, attempts, lastErr)
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Any status outside okStatuses is an error.
func (d *Driver) do(ctx context.Context, method, path string, body, out any, okStatuses ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	ok := false
	for _, s := range okStatuses {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (d *Driver) collectionPath(op string) string {
	return collectionsPath + "/" + d.collectionID + "/" + op
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection
	if _, err := d.do(ctx, http.MethodGet, collectionsPath+"/"+d.collectionName, nil, &collection, http.StatusOK); err == nil {
		return collection.ID, nil
	}

	createBody := map[string]string{"name": d.collectionName}
	if _, err := d.do(ctx, http.MethodPost, collectionsPath, createBody, &collection, http.StatusOK, http.StatusCreated); err != nil {
		return "", fmt.Errorf("failed to create collection: %w", err)
	}
	return collection.ID, nil
}

// Add upserts documents with their embeddings, content and metadata.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := chromaUpsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
		Documents:  make([]string, len(docs)),
	}
	for i, doc := range docs {
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Documents[i] = doc.Content
		req.Metadatas[i] = doc.Metadata
		if req.Metadatas[i] == nil {
			req.Metadatas[i] = map[string]any{}
		}
	}

	if _, err := d.do(ctx, http.MethodPost, d.collectionPath("upsert"), req, nil, http.StatusOK, http.StatusCreated); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	d.logger.Debug("added documents to chroma",
		zap.Int("count", len(docs)),
	)
	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	req := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"documents", "metadatas", "distances"},
	}

	var resp chromaQueryResponse
	if _, err := d.do(ctx, http.MethodPost, d.collectionPath("query"), req, &resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	results := []vector.QueryResult{}

	// Only one query embedding is sent, so only the first group matters
	if len(resp.IDs) == 0 {
		return results, nil
	}

	for i, id := range resp.IDs[0] {
		result := vector.QueryResult{
			Document: vector.Document{
				ID:      id,
				Content: groupString(resp.Documents, i),
			},
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			result.Metadata = resp.Metadatas[0][i]
		}

		// Lower distance = higher similarity
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			result.Score = 1.0 / (1.0 + resp.Distances[0][i])
		}
		results = append(results, result)
	}

	d.logger.Debug("queried chroma",
		zap.Int("results", len(results)),
	)
	return results, nil
}

func groupString(groups [][]*string, i int) string {
	if len(groups) == 0 || i >= len(groups[0]) || groups[0][i] == nil {
		return ""
	}
	return *groups[0][i]
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	req := chromaGetRequest{
		IDs:     ids,
		Include: []string{"documents", "metadatas", "embeddings"},
	}

	var resp chromaGetResponse
	if _, err := d.do(ctx, http.MethodPost, d.collectionPath("get"), req, &resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}

	docs := make([]vector.Document, len(resp.IDs))
	for i, id := range resp.IDs {
		docs[i] = vector.Document{ID: id}
		if i < len(resp.Documents) && resp.Documents[i] != nil {
			docs[i].Content = *resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			docs[i].Metadata = resp.Metadatas[i]
		}
		if i < len(resp.Embeddings) {
			docs[i].Embedding = resp.Embeddings[i]
		}
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := d.do(ctx, http.MethodPost, d.collectionPath("delete"), chromaDeleteRequest{IDs: ids}, nil, http.StatusOK); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	d.logger.Debug("deleted documents from chroma",
		zap.Int("count", len(ids)),
	)
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return nil
}
