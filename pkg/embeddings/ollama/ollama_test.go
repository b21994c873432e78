package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/pkg/embeddings"
	"github.com/papercomputeco/graphchat/pkg/embeddings/ollama"
)

var _ = Describe("Embedder", func() {
	It("posts the model and input to /api/embed", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/embed"))

			var req map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req).To(HaveKeyWithValue("model", ollama.DefaultEmbeddingModel))
			Expect(req).To(HaveKeyWithValue("input", "Who directed Heat?"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
		}))
		defer server.Close()

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		v, err := e.Embed(context.Background(), "Who directed Heat?")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{0.1, 0.2, 0.3}))
	})

	It("wraps non-200 responses in ErrEmbedding", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`model not found`))
		}))
		defer server.Close()

		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		_, err := e.Embed(context.Background(), "x")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("status 404"))
	})

	It("fails when no embeddings are returned", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"embeddings":[]}`))
		}))
		defer server.Close()

		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		_, err := e.Embed(context.Background(), "x")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})
})
