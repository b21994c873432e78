// Package embeddings defines the Embedder used to vectorise questions for
// similarity search, with HTTP-backed implementations in sub-packages.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single embedding request.
const DefaultTimeout = 120 * time.Second

// ErrEmbedding is returned when an embedding could not be produced.
var ErrEmbedding = errors.New("failed to generate embedding")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// PostJSON sends body as JSON to url and decodes a 200 response into out.
// Every failure wraps ErrEmbedding.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshaling request: %w", ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending request: %w", ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrEmbedding, resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrEmbedding, err)
	}
	return nil
}
