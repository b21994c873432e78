package neo4jvec_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/graph"
	testutils "github.com/papercomputeco/graphchat/pkg/utils/test"
	"github.com/papercomputeco/graphchat/pkg/vector"
	"github.com/papercomputeco/graphchat/pkg/vector/neo4jvec"
)

var _ = Describe("Driver", func() {
	var (
		ctx context.Context
		g   *testutils.MockGraph
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewDriver", func() {
		It("requires a graph", func() {
			_, err := neo4jvec.NewDriver(ctx, nil, neo4jvec.Config{}, nil)
			Expect(err).To(HaveOccurred())
		})

		It("does not touch the database without dimensions", func() {
			g = testutils.NewMockGraph()
			_, err := neo4jvec.NewDriver(ctx, g, neo4jvec.Config{}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Calls()).To(Equal(0))
		})

		It("creates the vector index when dimensions are set", func() {
			g = testutils.NewMockGraph()
			_, err := neo4jvec.NewDriver(ctx, g, neo4jvec.Config{Dimensions: 1536}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Queries).To(HaveLen(1))
			Expect(g.Queries[0]).To(ContainSubstring("CREATE VECTOR INDEX `moviePlots` IF NOT EXISTS"))
			Expect(g.Queries[0]).To(ContainSubstring("FOR (n:`Movie`) ON n.`plotEmbedding`"))
			Expect(g.Params[0]).To(HaveKeyWithValue("dimensions", 1536))
			Expect(g.Modes[0]).To(Equal(graph.AccessModeWrite))
		})

		It("surfaces index creation failures", func() {
			g = testutils.NewMockGraph(testutils.GraphResponse{Err: errors.New("boom")})
			_, err := neo4jvec.NewDriver(ctx, g, neo4jvec.Config{Dimensions: 4}, nil)
			Expect(err).To(MatchError(ContainSubstring("boom")))
		})
	})

	Describe("Query", func() {
		It("maps rows to documents carrying the node element id", func() {
			g = testutils.NewMockGraph(testutils.GraphResponse{Rows: []graph.Row{
				{
					"id":    int64(949),
					"text":  "A group of professional bank robbers...",
					"score": 0.93,
					"metadata": map[string]any{
						"title":         "Heat",
						"plot":          nil,
						"plotEmbedding": nil,
						"_id":           "4:db:949",
					},
				},
			}})
			d, err := neo4jvec.NewDriver(ctx, g, neo4jvec.Config{}, nil)
			Expect(err).NotTo(HaveOccurred())

			results, err := d.Query(ctx, []float32{0.1, 0.2}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("949"))
			Expect(results[0].Content).To(HavePrefix("A group"))
			Expect(results[0].Score).To(BeNumerically("~", 0.93, 0.0001))
			Expect(results[0].SourceID()).To(Equal("4:db:949"))
			Expect(results[0].Metadata).NotTo(HaveKey("plot"))

			Expect(g.Queries[0]).To(ContainSubstring("db.index.vector.queryNodes"))
			Expect(g.Params[0]).To(HaveKeyWithValue("index", "moviePlots"))
			Expect(g.Params[0]).To(HaveKeyWithValue("k", 5))
			Expect(g.Modes[0]).To(Equal(graph.AccessModeRead))
		})

		It("wraps graph errors", func() {
			g = testutils.NewMockGraph(testutils.GraphResponse{Err: graph.ErrConnection})
			d, _ := neo4jvec.NewDriver(ctx, g, neo4jvec.Config{}, nil)
			_, err := d.Query(ctx, []float32{0.1}, 5)
			Expect(err).To(MatchError(graph.ErrConnection))
		})
	})

	Describe("Add", func() {
		It("sends one parameter map per document without the element id", func() {
			g = testutils.NewMockGraph()
			d, _ := neo4jvec.NewDriver(ctx, g, neo4jvec.Config{NodeLabel: "Chunk", IDProperty: "id"}, nil)

			err := d.Add(ctx, []vector.Document{{
				ID:        "c1",
				Content:   "text",
				Metadata:  map[string]any{"source": "a.md", vector.IDKey: "4:x:1"},
				Embedding: []float32{1, 2},
			}})
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Queries[0]).To(ContainSubstring("MERGE (n:`Chunk` { `id`: doc.id })"))

			docs := g.Params[0]["docs"].([]map[string]any)
			Expect(docs).To(HaveLen(1))
			Expect(docs[0]["metadata"]).To(Equal(map[string]any{"source": "a.md"}))
			Expect(g.Params[0]).To(HaveKeyWithValue("embeddingProperty", "plotEmbedding"))
		})
	})

	Describe("Get", func() {
		It("decodes stored embeddings", func() {
			g = testutils.NewMockGraph(testutils.GraphResponse{Rows: []graph.Row{
				{"id": "m1", "text": "plot", "embedding": []any{0.5, 0.25}, "metadata": map[string]any{"_id": "4:db:1"}},
			}})
			d, _ := neo4jvec.NewDriver(ctx, g, neo4jvec.Config{}, nil)

			docs, err := d.Get(ctx, []string{"m1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Embedding).To(Equal([]float32{0.5, 0.25}))
		})

		It("returns nil for no ids", func() {
			g = testutils.NewMockGraph()
			d, _ := neo4jvec.NewDriver(ctx, g, neo4jvec.Config{}, nil)
			Expect(d.Get(ctx, nil)).To(BeNil())
			Expect(g.Calls()).To(Equal(0))
		})
	})

	Describe("Delete", func() {
		It("detach deletes by id", func() {
			g = testutils.NewMockGraph()
			d, _ := neo4jvec.NewDriver(ctx, g, neo4jvec.Config{}, nil)
			Expect(d.Delete(ctx, []string{"m1"})).To(Succeed())
			Expect(g.Queries[0]).To(ContainSubstring("DETACH DELETE n"))
			Expect(g.Params[0]).To(HaveKeyWithValue("ids", []string{"m1"}))
		})
	})
})
