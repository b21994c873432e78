package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/graphchat/pkg/vector"
)

// MockVectorDriver is a test vector driver returning scripted query results.
type MockVectorDriver struct {
	mu sync.Mutex

	documents []vector.Document

	// Results is returned, truncated to topK, from Query.
	Results []vector.QueryResult
	// QueryErr fails every Query when set.
	QueryErr error
	// TopKs records the k of every Query.
	TopKs []int
}

func NewMockVectorDriver(results ...vector.QueryResult) *MockVectorDriver {
	return &MockVectorDriver{
		documents: make([]vector.Document, 0),
		Results:   results,
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TopKs = append(m.TopKs, topK)

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []vector.Document
	for _, d := range m.documents {
		if want[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, _ []string) error {
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
