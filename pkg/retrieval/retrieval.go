// Package retrieval gathers the context an answer is grounded on, either by
// similarity search over embedded documents or by synthesizing and running a
// Cypher query, and records each answered turn.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/papercomputeco/graphchat/pkg/history"
)

// ErrRetrieval wraps failures to gather context.
var ErrRetrieval = errors.New("retrieval failed")

// Input is the contract every pipeline and tool accepts.
type Input struct {
	Input             string `json:"input"`
	RephrasedQuestion string `json:"rephrasedQuestion"`
}

// Question returns the standalone question, falling back to the raw input.
func (in Input) Question() string {
	if in.RephrasedQuestion != "" {
		return in.RephrasedQuestion
	}
	return in.Input
}

// Retrieval is the context a pipeline produced.
type Retrieval struct {
	Source history.Source

	// Context is the JSON text handed to the answer composer.
	Context string

	// SourceIDs are provenance ids linked to the turn as CONTEXT.
	SourceIDs []string

	// Query is the Cypher that was executed, empty for similarity search.
	Query string
}

// Pipeline retrieves context for a question.
type Pipeline interface {
	Name() history.Source
	Description() string
	Retrieve(ctx context.Context, in Input) (*Retrieval, error)
}

// marshal encodes v as compact JSON without escaping &, < and >, so links
// reach the model intact.
func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
