package neo4j

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	// IDKey holds a node's or relationship's element id in converted values.
	IDKey     = "_id"
	labelsKey = "_labels"
	typeKey   = "_type"
)

// RecordToRow zips record keys and values into a row of plain Go values.
func RecordToRow(keys []string, values []any) map[string]any {
	row := make(map[string]any, len(keys))
	for i, key := range keys {
		if i < len(values) {
			row[key] = ToValue(values[i])
		}
	}
	return row
}

// ToValue converts a driver value into JSON-friendly Go values.
func ToValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		m := make(map[string]any, len(val.Props)+2)
		for k, p := range val.Props {
			m[k] = ToValue(p)
		}
		m[IDKey] = val.ElementId
		m[labelsKey] = val.Labels
		return m

	case neo4j.Relationship:
		m := make(map[string]any, len(val.Props)+2)
		for k, p := range val.Props {
			m[k] = ToValue(p)
		}
		m[IDKey] = val.ElementId
		m[typeKey] = val.Type
		return m

	case neo4j.Path:
		out := make([]any, 0, len(val.Nodes)+len(val.Relationships))
		for i, n := range val.Nodes {
			out = append(out, ToValue(n))
			if i < len(val.Relationships) {
				out = append(out, ToValue(val.Relationships[i]))
			}
		}
		return out

	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ToValue(item)
		}
		return out

	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = ToValue(item)
		}
		return out

	case neo4j.Date:
		return val.Time().Format(time.DateOnly)

	case neo4j.LocalDateTime:
		return val.Time().Format("2006-01-02T15:04:05.999999999")

	case neo4j.LocalTime:
		return val.Time().Format("15:04:05.999999999")

	case neo4j.Time:
		return val.Time().Format("15:04:05.999999999Z07:00")

	case time.Time:
		return val.Format(time.RFC3339Nano)

	case neo4j.Duration:
		return val.String()

	case neo4j.Point2D:
		return val.String()

	case neo4j.Point3D:
		return val.String()

	default:
		return v
	}
}
