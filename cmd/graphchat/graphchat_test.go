package graphchatcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/api"
	graphchatcmder "github.com/papercomputeco/graphchat/cmd/graphchat"
	"github.com/papercomputeco/graphchat/pkg/dotdir"
	"github.com/papercomputeco/graphchat/pkg/history"
)

// fakeAPI records chat requests and keeps per-session turns in memory.
type fakeAPI struct {
	mu       sync.Mutex
	sessions []string
	turns    map[string][]*history.Turn
	cleared  []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/chat":
		var req api.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.sessions = append(f.sessions, req.SessionID)
		f.turns[req.SessionID] = append(f.turns[req.SessionID], &history.Turn{
			Source: history.SourceVector,
			Input:  req.Input,
			Output: "Toy Story is about toys.",
		})
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			SessionID: req.SessionID,
			Output:    "Toy Story is about toys.",
			Tool:      "vector",
		})
	case strings.HasSuffix(r.URL.Path, "/history"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/sessions/"), "/history")
		if r.Method == http.MethodDelete {
			f.cleared = append(f.cleared, id)
			delete(f.turns, id)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		turns := f.turns[id]
		if turns == nil {
			turns = []*history.Turn{}
		}
		_ = json.NewEncoder(w).Encode(api.HistoryResponse{SessionID: id, Turns: turns, Count: len(turns)})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

var _ = Describe("graphchat command", func() {
	var (
		fake      *fakeAPI
		server    *httptest.Server
		configDir string
	)

	BeforeEach(func() {
		fake = &fakeAPI{turns: map[string][]*history.Turn{}}
		server = httptest.NewServer(fake)
		DeferCleanup(server.Close)
		configDir = GinkgoT().TempDir()
	})

	run := func(stdin string, args ...string) (string, error) {
		cmd := graphchatcmder.NewGraphchatCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", configDir))
		err := cmd.Execute()
		return out.String(), err
	}

	It("registers every subcommand", func() {
		cmd := graphchatcmder.NewGraphchatCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "ask", "chat", "history", "config", "auth", "version"))
	})

	It("registers the serve flags from the flag registry", func() {
		cmd := graphchatcmder.NewGraphchatCmd()
		serve, _, err := cmd.Find([]string{"serve"})
		Expect(err).NotTo(HaveOccurred())
		Expect(serve.Flags().Lookup("listen").DefValue).To(Equal(":8080"))
		Expect(serve.Flags().Lookup("neo4j-uri").DefValue).To(Equal("neo4j://localhost:7687"))
		Expect(serve.Flags().Lookup("kafka-topic").DefValue).To(Equal("graphchat.turns"))
		Expect(serve.Flags().ShorthandLookup("m").Name).To(Equal("model"))
	})

	It("prints the version", func() {
		out, err := run("", "version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Version:"))
	})

	Describe("ask", func() {
		It("answers and keeps asking in the saved session", func() {
			out, err := run("", "ask", "--api-target", server.URL, "a", "film", "about", "toys")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Toy Story"))

			_, err = run("", "ask", "--api-target", server.URL, "who directed it?")
			Expect(err).NotTo(HaveOccurred())

			state, err := dotdir.NewManager().LoadSession(configDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.sessions).To(Equal([]string{state.ID, state.ID}))
			Expect(fake.turns[state.ID][0].Input).To(Equal("a film about toys"))
		})

		It("starts a new session with --new", func() {
			_, err := run("", "ask", "--api-target", server.URL, "first")
			Expect(err).NotTo(HaveOccurred())
			_, err = run("", "ask", "--api-target", server.URL, "--new", "second")
			Expect(err).NotTo(HaveOccurred())

			Expect(fake.sessions).To(HaveLen(2))
			Expect(fake.sessions[0]).NotTo(Equal(fake.sessions[1]))
		})

		It("talks in an explicit session", func() {
			_, err := run("", "ask", "--api-target", server.URL, "--session", "s-42", "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.sessions).To(Equal([]string{"s-42"}))
		})

		It("requires a question", func() {
			_, err := run("", "ask", "--api-target", server.URL)
			Expect(err).To(HaveOccurred())
		})

		It("fails when the server is unreachable", func() {
			_, err := run("", "ask", "--api-target", "http://127.0.0.1:1", "hello")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("chat", func() {
		It("answers each line until /exit", func() {
			out, err := run("hello\n\nwho directed it?\n/exit\nignored\n", "chat", "--api-target", server.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.sessions).To(HaveLen(2))
			Expect(out).To(ContainSubstring("graphchat> "))
		})

		It("clears the conversation and moves to a new session", func() {
			_, err := run("hello\n/clear\nagain\n", "chat", "--api-target", server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(fake.sessions).To(HaveLen(2))
			Expect(fake.cleared).To(Equal([]string{fake.sessions[0]}))
			Expect(fake.sessions[1]).NotTo(Equal(fake.sessions[0]))
		})

		It("stops at end of input", func() {
			_, err := run("", "chat", "--api-target", server.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.sessions).To(BeEmpty())
		})
	})

	Describe("history", func() {
		It("needs a session when none is saved", func() {
			_, err := run("", "history", "show", "--api-target", server.URL)
			Expect(err).To(MatchError(ContainSubstring("no saved conversation")))
		})

		It("shows the saved conversation", func() {
			_, err := run("", "ask", "--api-target", server.URL, "a film about toys")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("", "history", "show", "--api-target", server.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("a film about toys"))
			Expect(out).To(ContainSubstring("via vector"))
		})

		It("clears a named session", func() {
			out, err := run("", "history", "clear", "s-7", "--api-target", server.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Cleared"))
			Expect(fake.cleared).To(Equal([]string{"s-7"}))
		})
	})
})
