package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/graphchat/pkg/graph"
)

// GraphResponse is one scripted result of MockGraph.Query.
type GraphResponse struct {
	Rows []graph.Row
	Err  error
}

// MockGraph is a test graph that replays scripted responses in order. Once the
// script is exhausted the last response repeats.
type MockGraph struct {
	mu sync.Mutex

	Responses  []GraphResponse
	SchemaText string
	SchemaErr  error

	// Queries records every query passed to Query.
	Queries []string
	// Params records the parameters of every query.
	Params []map[string]any
	// Modes records the access mode of every query.
	Modes []graph.AccessMode
}

func NewMockGraph(responses ...GraphResponse) *MockGraph {
	return &MockGraph{
		Responses:  responses,
		SchemaText: "Node properties:\nMovie {title: STRING}\nRelationship properties:\nThe relationships:\n(:Person)-[:DIRECTED]->(:Movie)",
	}
}

func (m *MockGraph) Query(_ context.Context, cypher string, params map[string]any, mode graph.AccessMode) ([]graph.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.Queries)
	m.Queries = append(m.Queries, cypher)
	m.Params = append(m.Params, params)
	m.Modes = append(m.Modes, mode)

	if len(m.Responses) == 0 {
		return []graph.Row{}, nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	r := m.Responses[idx]
	return r.Rows, r.Err
}

func (m *MockGraph) Schema(_ context.Context) (string, error) {
	return m.SchemaText, m.SchemaErr
}

func (m *MockGraph) Close() error {
	return nil
}

// Calls returns the number of queries run so far.
func (m *MockGraph) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}
