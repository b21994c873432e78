package sqlitevec_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/vector"
	"github.com/papercomputeco/graphchat/pkg/vector/sqlitevec"
)

func plot(id, title string, v float32) vector.Document {
	return vector.Document{
		ID:        id,
		Content:   title + " plot",
		Metadata:  map[string]any{vector.IDKey: "4:movie:" + id, "title": title},
		Embedding: []float32{v, v, v, v},
	}
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		logger *zap.Logger
		driver *sqlitevec.Driver
	)

	newMemoryDriver := func() *sqlitevec.Driver {
		d, err := sqlitevec.NewDriver(ctx, sqlitevec.Config{
			DBPath:     ":memory:",
			Dimensions: 4,
		}, logger)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(d.Close)
		return d
	}

	BeforeEach(func() {
		ctx = context.Background()
		logger = zap.NewNop()
	})

	Describe("NewDriver", func() {
		It("returns an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(ctx, sqlitevec.Config{Dimensions: 4}, logger)
			Expect(err).To(MatchError(ContainSubstring("database path is required")))
		})

		It("returns an error when dimensions are not configured", func() {
			_, err := sqlitevec.NewDriver(ctx, sqlitevec.Config{DBPath: ":memory:"}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("accepts a nil logger", func() {
			d, err := sqlitevec.NewDriver(ctx, sqlitevec.Config{DBPath: ":memory:", Dimensions: 4}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Close()).To(Succeed())
		})

		It("reopens a file database with its documents intact", func() {
			path := filepath.Join(GinkgoT().TempDir(), "vec.db")
			cfg := sqlitevec.Config{DBPath: path, Dimensions: 4}

			d, err := sqlitevec.NewDriver(ctx, cfg, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Add(ctx, []vector.Document{plot("m1", "Heat", 0.1)})).To(Succeed())
			Expect(d.Close()).To(Succeed())

			d, err = sqlitevec.NewDriver(ctx, cfg, logger)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			docs, err := d.Get(ctx, []string{"m1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Content).To(Equal("Heat plot"))
		})
	})

	Describe("Add", func() {
		BeforeEach(func() {
			driver = newMemoryDriver()
		})

		It("does nothing when given no documents", func() {
			Expect(driver.Add(ctx, nil)).To(Succeed())
		})

		It("stores content and metadata", func() {
			Expect(driver.Add(ctx, []vector.Document{plot("m1", "Heat", 0.1)})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"m1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Content).To(Equal("Heat plot"))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("title", "Heat"))
			Expect(docs[0].SourceID()).To(Equal("4:movie:m1"))
		})

		It("stores documents without metadata", func() {
			Expect(driver.Add(ctx, []vector.Document{{
				ID:        "bare",
				Content:   "text",
				Embedding: []float32{1, 0, 0, 0},
			}})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"bare"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs[0].Metadata).To(BeEmpty())
			Expect(docs[0].SourceID()).To(Equal("bare"))
		})

		It("replaces an existing document", func() {
			Expect(driver.Add(ctx, []vector.Document{plot("m1", "Heat", 0.1)})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{plot("m1", "Ronin", 0.9)})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"m1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("title", "Ronin"))
			Expect(docs[0].Embedding[0]).To(BeNumerically("~", 0.9, 0.001))
		})

		It("rejects embeddings with the wrong dimensions", func() {
			err := driver.Add(ctx, []vector.Document{{ID: "m1", Embedding: []float32{1, 2}}})
			Expect(err).To(MatchError(vector.ErrEmbedding))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			driver = newMemoryDriver()
			Expect(driver.Add(ctx, []vector.Document{
				plot("m1", "Heat", 0.1),
				plot("m2", "Ronin", 0.2),
				plot("m3", "Collateral", 0.3),
				plot("m4", "Thief", 0.4),
				plot("m5", "Manhunter", 0.5),
			})).To(Succeed())
		})

		It("returns the closest documents first with their content", func() {
			results, err := driver.Query(ctx, []float32{0.3, 0.3, 0.3, 0.3}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("m3"))
			Expect(results[0].Content).To(Equal("Collateral plot"))
			Expect(results[0].Metadata).To(HaveKeyWithValue(vector.IDKey, "4:movie:m3"))
		})

		It("defaults topK to 10 when zero", func() {
			results, err := driver.Query(ctx, []float32{0.3, 0.3, 0.3, 0.3}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(5))
		})

		It("orders scores descending", func() {
			results, err := driver.Query(ctx, []float32{0.3, 0.3, 0.3, 0.3}, 5)
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			driver = newMemoryDriver()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "m1", Embedding: []float32{0.1, 0.2, 0.3, 0.4}},
				{ID: "m2", Embedding: []float32{0.5, 0.6, 0.7, 0.8}},
			})).To(Succeed())
		})

		It("returns nil for no IDs", func() {
			docs, err := driver.Get(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeNil())
		})

		It("returns embeddings", func() {
			docs, err := driver.Get(ctx, []string{"m1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs[0].Embedding).To(HaveLen(4))
			Expect(docs[0].Embedding[3]).To(BeNumerically("~", 0.4, 0.001))
		})

		It("skips unknown IDs", func() {
			docs, err := driver.Get(ctx, []string{"m1", "missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal("m1"))
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			driver = newMemoryDriver()
			Expect(driver.Add(ctx, []vector.Document{
				plot("m1", "Heat", 0.1),
				plot("m2", "Ronin", 0.2),
				plot("m3", "Collateral", 0.3),
			})).To(Succeed())
		})

		It("removes documents from Get and Query", func() {
			Expect(driver.Delete(ctx, []string{"m3"})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"m3"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())

			results, err := driver.Query(ctx, []float32{0.3, 0.3, 0.3, 0.3}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			for _, r := range results {
				Expect(r.ID).NotTo(Equal("m3"))
			}
		})

		It("ignores unknown IDs", func() {
			Expect(driver.Delete(ctx, []string{"missing"})).To(Succeed())
		})
	})
})
