// Package graph provides the boundary to the property graph the agent
// queries: read/write Cypher execution and schema introspection.
package graph

import (
	"context"
	"errors"
)

// AccessMode routes a query to readers or writers.
type AccessMode int

const (
	AccessModeRead AccessMode = iota
	AccessModeWrite
)

// Row is a single result record keyed by column name. Values are plain Go
// values: nodes and relationships become maps of their properties plus
// "_id" (element id), paths become slices.
type Row = map[string]any

var (
	// ErrConnection is returned when the graph database cannot be reached.
	ErrConnection = errors.New("graph connection failed")

	// ErrEmptyQuery is returned when Query is called with blank Cypher.
	ErrEmptyQuery = errors.New("empty cypher query")
)

// Graph executes Cypher and describes the graph's schema.
type Graph interface {
	// Query runs cypher with params and returns every row.
	Query(ctx context.Context, cypher string, params map[string]any, mode AccessMode) ([]Row, error)

	// Schema returns a textual description of node labels, relationship types
	// and their properties, suitable for inclusion in a prompt.
	Schema(ctx context.Context) (string, error)

	// Close releases any resources held by the graph.
	Close() error
}
