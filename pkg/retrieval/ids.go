package retrieval

import (
	"strconv"
)

// idKeys are the keys whose values are collected as provenance ids.
var idKeys = map[string]bool{
	"_id":        true,
	"elementId":  true,
	"element_id": true,
}

// ExtractIDs walks maps and slices of any depth and collects the values held
// under _id, elementId and element_id keys. A list under one of those keys,
// as produced by collect(elementId(m)) AS _id, contributes every element.
// Strings are kept as is, integers are formatted base 10. Ids are returned in
// first-seen order without duplicates. Map keys are visited in sorted order
// so the result is stable.
func ExtractIDs(v any) []string {
	seen := make(map[string]bool)
	ids := []string{}
	collect := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	var walk, walkIDs func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			for _, k := range sortedKeys(val) {
				if idKeys[k] {
					walkIDs(val[k])
					continue
				}
				walk(val[k])
			}
		case []map[string]any:
			for _, e := range val {
				walk(e)
			}
		case []any:
			for _, e := range val {
				walk(e)
			}
		}
	}
	walkIDs = func(v any) {
		if id, ok := idString(v); ok {
			collect(id)
			return
		}
		switch val := v.(type) {
		case []any:
			for _, e := range val {
				walkIDs(e)
			}
		case []string:
			for _, e := range val {
				collect(e)
			}
		default:
			walk(v)
		}
	}
	walk(v)
	return ids
}

func idString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, true
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	case int32:
		return strconv.FormatInt(int64(id), 10), true
	case float64:
		// JSON numbers decode as float64; only whole values are ids
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10), true
		}
	}
	return "", false
}
