package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/agent"
	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/history/inmemory"
	"github.com/papercomputeco/graphchat/pkg/llm"
	"github.com/papercomputeco/graphchat/pkg/metrics"
	"github.com/papercomputeco/graphchat/pkg/retrieval"
)

type fakeAgent struct {
	store history.Driver

	respondErr error
	toolErr    error

	lastSession string
	lastTool    string
	lastInput   retrieval.Input
}

func (f *fakeAgent) Respond(ctx context.Context, sessionID, input string) (*agent.Reply, error) {
	f.lastSession = sessionID
	if f.respondErr != nil {
		return nil, f.respondErr
	}
	_, err := f.store.Append(ctx, sessionID, &history.Turn{
		Source: history.SourceVector,
		Input:  input,
		Output: "Toy Story.",
	})
	if err != nil {
		return nil, err
	}
	return &agent.Reply{Output: "Toy Story.", RephrasedQuestion: input, Tool: history.SourceVector}, nil
}

func (f *fakeAgent) RunTool(_ context.Context, name, sessionID string, in retrieval.Input) (string, error) {
	f.lastTool = name
	f.lastSession = sessionID
	f.lastInput = in
	if f.toolErr != nil {
		return "", f.toolErr
	}
	if name != "vector" && name != "cypher" {
		return "", fmt.Errorf("%w: %s", agent.ErrUnknownTool, name)
	}
	return "from " + name, nil
}

func (f *fakeAgent) History(ctx context.Context, sessionID string, window int) ([]*history.Turn, error) {
	return f.store.Read(ctx, sessionID, window)
}

func (f *fakeAgent) Clear(ctx context.Context, sessionID string) error {
	return f.store.Clear(ctx, sessionID)
}

type fakeSchema struct {
	schema string
	err    error
}

func (f fakeSchema) Schema(context.Context) (string, error) { return f.schema, f.err }

func doJSON(server *Server, method, path string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := server.app.Test(req)
	Expect(err).NotTo(HaveOccurred())
	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, raw
}

var _ = Describe("Server", func() {
	var (
		fake      *fakeAgent
		collector *metrics.Collector
		server    *Server
	)

	BeforeEach(func() {
		fake = &fakeAgent{store: inmemory.NewDriver()}
		collector = metrics.NewCollector("test")

		var err error
		server, err = NewServer(Config{ListenAddr: ":0", Metrics: collector}, fake,
			fakeSchema{schema: "Node properties:\nMovie {title: STRING}"}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("requires an agent", func() {
			_, err := NewServer(Config{}, nil, fakeSchema{}, zap.NewNop())
			Expect(err).To(MatchError(ContainSubstring("agent is required")))
		})

		It("requires a schema source", func() {
			_, err := NewServer(Config{}, fake, nil, zap.NewNop())
			Expect(err).To(MatchError(ContainSubstring("schema source is required")))
		})

		It("defaults the history window", func() {
			Expect(server.config.Window).To(Equal(history.DefaultWindow))
		})
	})

	It("answers ping", func() {
		resp, body := doJSON(server, http.MethodGet, "/ping", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("POST /v1/chat", func() {
		It("answers within the given session", func() {
			resp, body := doJSON(server, http.MethodPost, "/v1/chat", ChatRequest{SessionID: "s1", Input: "a film about toys"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out ChatResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out).To(Equal(ChatResponse{
				SessionID:         "s1",
				Output:            "Toy Story.",
				RephrasedQuestion: "a film about toys",
				Tool:              "vector",
			}))
		})

		It("starts a session when none is given", func() {
			resp, body := doJSON(server, http.MethodPost, "/v1/chat", ChatRequest{Input: "hello"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out ChatResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.SessionID).NotTo(BeEmpty())
			Expect(fake.lastSession).To(Equal(out.SessionID))
		})

		It("rejects an empty input", func() {
			resp, _ := doJSON(server, http.MethodPost, "/v1/chat", ChatRequest{SessionID: "s1"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("{"))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		DescribeTable("maps agent errors to statuses",
			func(err error, status int) {
				fake.respondErr = err
				resp, body := doJSON(server, http.MethodPost, "/v1/chat", ChatRequest{SessionID: "s1", Input: "q"})
				Expect(resp.StatusCode).To(Equal(status))

				var out ErrorResponse
				Expect(json.Unmarshal(body, &out)).To(Succeed())
				Expect(out.Error).NotTo(BeEmpty())
			},
			Entry("open circuit", fmt.Errorf("rephrasing: %w", llm.ErrCircuitOpen), http.StatusServiceUnavailable),
			Entry("deadline", context.DeadlineExceeded, http.StatusGatewayTimeout),
			Entry("retrieval", fmt.Errorf("answering with vector: %w", retrieval.ErrRetrieval), http.StatusBadGateway),
			Entry("anything else", errors.New("boom"), http.StatusInternalServerError),
		)
	})

	Describe("POST /v1/tools/:name", func() {
		It("runs the named tool", func() {
			resp, body := doJSON(server, http.MethodPost, "/v1/tools/cypher", ToolRequest{
				SessionID:         "s2",
				Input:             "who directed it?",
				RephrasedQuestion: "Who directed Toy Story?",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"tool":"cypher","output":"from cypher"}`))
			Expect(fake.lastSession).To(Equal("s2"))
			Expect(fake.lastInput).To(Equal(retrieval.Input{Input: "who directed it?", RephrasedQuestion: "Who directed Toy Story?"}))
		})

		It("returns 404 for an unknown tool", func() {
			resp, _ := doJSON(server, http.MethodPost, "/v1/tools/web", ToolRequest{Input: "q"})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("session history", func() {
		BeforeEach(func() {
			for _, q := range []string{"one", "two", "three"} {
				resp, _ := doJSON(server, http.MethodPost, "/v1/chat", ChatRequest{SessionID: "s3", Input: q})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			}
		})

		It("returns turns oldest first", func() {
			resp, body := doJSON(server, http.MethodGet, "/v1/sessions/s3/history", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out HistoryResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Count).To(Equal(3))
			Expect(out.Turns[0].Input).To(Equal("one"))
			Expect(out.Turns[2].Input).To(Equal("three"))
		})

		It("honours the window parameter", func() {
			_, body := doJSON(server, http.MethodGet, "/v1/sessions/s3/history?window=1", nil)

			var out HistoryResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Count).To(Equal(2))
			Expect(out.Turns[1].Input).To(Equal("three"))
		})

		It("rejects a non-positive window", func() {
			resp, _ := doJSON(server, http.MethodGet, "/v1/sessions/s3/history?window=0", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns an empty list for an unknown session", func() {
			_, body := doJSON(server, http.MethodGet, "/v1/sessions/nobody/history", nil)
			Expect(body).To(MatchJSON(`{"session_id":"nobody","turns":[],"count":0}`))
		})

		It("clears the session", func() {
			resp, _ := doJSON(server, http.MethodDelete, "/v1/sessions/s3/history", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			_, body := doJSON(server, http.MethodGet, "/v1/sessions/s3/history", nil)
			var out HistoryResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Count).To(BeZero())
		})
	})

	Describe("GET /v1/schema", func() {
		It("returns the schema", func() {
			resp, body := doJSON(server, http.MethodGet, "/v1/schema", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out SchemaResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Schema).To(ContainSubstring("Movie {title: STRING}"))
		})

		It("reports schema failures", func() {
			failing, err := NewServer(Config{}, fake, fakeSchema{err: errors.New("unreachable")}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			resp, _ := doJSON(failing, http.MethodGet, "/v1/schema", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("metrics", func() {
		It("counts requests by route", func() {
			doJSON(server, http.MethodGet, "/ping", nil)
			doJSON(server, http.MethodPost, "/v1/tools/web", ToolRequest{Input: "q"})

			Expect(testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "/ping", "200"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("POST", "/v1/tools/:name", "404"))).To(Equal(1.0))
		})

		It("keeps labels intact across later requests", func() {
			doJSON(server, http.MethodPost, "/v1/tools/web", ToolRequest{Input: "q"})
			for range 3 {
				doJSON(server, http.MethodGet, "/ping", nil)
			}

			Expect(testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("POST", "/v1/tools/:name", "404"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "/ping", "200"))).To(Equal(3.0))

			_, body := doJSON(server, http.MethodGet, "/metrics", nil)
			Expect(string(body)).To(ContainSubstring(`method="POST",route="/v1/tools/:name",status="404"`))
			Expect(string(body)).NotTo(ContainSubstring(`method="GETT"`))
		})

		It("serves the registry", func() {
			doJSON(server, http.MethodGet, "/ping", nil)
			resp, body := doJSON(server, http.MethodGet, "/metrics", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring("test_http_requests_total"))
		})
	})

	It("mounts the MCP handler", func() {
		mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})
		withMCP, err := NewServer(Config{MCPHandler: mcpHandler}, fake, fakeSchema{}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		resp, _ := doJSON(withMCP, http.MethodPost, "/mcp", map[string]any{})
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
	})
})
