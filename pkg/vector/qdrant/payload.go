package qdrant

import (
	"maps"

	qc "github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/graphchat/pkg/vector"
)

func encodePayload(doc vector.Document) (map[string]*qc.Value, error) {
	raw := make(map[string]any, len(doc.Metadata)+2)
	maps.Copy(raw, doc.Metadata)
	raw[docIDKey] = doc.ID
	raw[contentKey] = doc.Content
	return qc.TryValueMap(raw)
}

func decodePayload(id *qc.PointId, payload map[string]*qc.Value) vector.Document {
	doc := vector.Document{ID: id.GetUuid()}
	if len(payload) == 0 {
		return doc
	}

	doc.Metadata = make(map[string]any, len(payload))
	for k, v := range payload {
		switch k {
		case docIDKey:
			doc.ID = v.GetStringValue()
		case contentKey:
			doc.Content = v.GetStringValue()
		default:
			doc.Metadata[k] = fromValue(v)
		}
	}
	return doc
}

// fromValue converts a payload value back into plain Go data.
func fromValue(v *qc.Value) any {
	switch kind := v.GetKind().(type) {
	case *qc.Value_StringValue:
		return kind.StringValue
	case *qc.Value_IntegerValue:
		return kind.IntegerValue
	case *qc.Value_DoubleValue:
		return kind.DoubleValue
	case *qc.Value_BoolValue:
		return kind.BoolValue
	case *qc.Value_StructValue:
		out := make(map[string]any, len(kind.StructValue.GetFields()))
		for k, f := range kind.StructValue.GetFields() {
			out[k] = fromValue(f)
		}
		return out
	case *qc.Value_ListValue:
		vals := kind.ListValue.GetValues()
		out := make([]any, len(vals))
		for i, e := range vals {
			out[i] = fromValue(e)
		}
		return out
	default:
		return nil
	}
}
