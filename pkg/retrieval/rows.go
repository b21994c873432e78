package retrieval

import (
	"fmt"
	"sort"

	"github.com/papercomputeco/graphchat/pkg/graph"
)

// SerializeRows renders query rows as JSON context. A single row is
// unwrapped to the row itself; zero rows, or no result at all, give "[]".
func SerializeRows(rows []graph.Row) (string, error) {
	var v any = rows
	switch len(rows) {
	case 0:
		v = []graph.Row{}
	case 1:
		v = rows[0]
	}

	out, err := marshal(v)
	if err != nil {
		return "", fmt.Errorf("serializing rows: %w", err)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
