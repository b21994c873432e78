package neo4j

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ToValue", func() {
	It("flattens a node into its properties plus element id and labels", func() {
		node := neo4j.Node{
			ElementId: "4:abc:1",
			Labels:    []string{"Movie"},
			Props:     map[string]any{"title": "Heat", "released": int64(1995)},
		}

		out := ToValue(node).(map[string]any)
		Expect(out).To(HaveKeyWithValue("title", "Heat"))
		Expect(out).To(HaveKeyWithValue("released", int64(1995)))
		Expect(out).To(HaveKeyWithValue(IDKey, "4:abc:1"))
		Expect(out).To(HaveKeyWithValue("_labels", []string{"Movie"}))
	})

	It("flattens a relationship with its type", func() {
		rel := neo4j.Relationship{
			ElementId: "5:abc:9",
			Type:      "ACTED_IN",
			Props:     map[string]any{"roles": []any{"Neil"}},
		}

		out := ToValue(rel).(map[string]any)
		Expect(out).To(HaveKeyWithValue(IDKey, "5:abc:9"))
		Expect(out).To(HaveKeyWithValue("_type", "ACTED_IN"))
		Expect(out).To(HaveKeyWithValue("roles", []any{"Neil"}))
	})

	It("interleaves path nodes and relationships", func() {
		path := neo4j.Path{
			Nodes: []neo4j.Node{
				{ElementId: "n1", Props: map[string]any{}},
				{ElementId: "n2", Props: map[string]any{}},
			},
			Relationships: []neo4j.Relationship{
				{ElementId: "r1", Type: "KNOWS", Props: map[string]any{}},
			},
		}

		out := ToValue(path).([]any)
		Expect(out).To(HaveLen(3))
		Expect(out[0]).To(HaveKeyWithValue(IDKey, "n1"))
		Expect(out[1]).To(HaveKeyWithValue(IDKey, "r1"))
		Expect(out[2]).To(HaveKeyWithValue(IDKey, "n2"))
	})

	It("converts nested collections recursively", func() {
		out := ToValue(map[string]any{
			"movies": []any{neo4j.Node{ElementId: "m1", Props: map[string]any{"title": "Heat"}}},
		}).(map[string]any)

		movies := out["movies"].([]any)
		Expect(movies[0]).To(HaveKeyWithValue("title", "Heat"))
	})

	It("formats temporal values as strings", func() {
		d := neo4j.DateOf(time.Date(1995, 12, 15, 0, 0, 0, 0, time.UTC))
		Expect(ToValue(d)).To(Equal("1995-12-15"))
	})

	It("passes scalars through", func() {
		Expect(ToValue("x")).To(Equal("x"))
		Expect(ToValue(int64(3))).To(Equal(int64(3)))
		Expect(ToValue(nil)).To(BeNil())
	})
})

var _ = Describe("RecordToRow", func() {
	It("zips keys and values", func() {
		row := RecordToRow([]string{"title", "year"}, []any{"Heat", int64(1995)})
		Expect(row).To(Equal(map[string]any{"title": "Heat", "year": int64(1995)}))
	})
})
