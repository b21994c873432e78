package retrieval_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/retrieval"
	testutils "github.com/papercomputeco/graphchat/pkg/utils/test"
)

type stubPipeline struct {
	name      history.Source
	retrieval *retrieval.Retrieval
	err       error
	inputs    []retrieval.Input
}

func (s *stubPipeline) Name() history.Source { return s.name }
func (s *stubPipeline) Description() string { return "handles " + string(s.name) + " questions" }
func (s *stubPipeline) Retrieve(_ context.Context, in retrieval.Input) (*retrieval.Retrieval, error) {
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	if s.retrieval != nil {
		return s.retrieval, nil
	}
	return &retrieval.Retrieval{Source: s.name, Context: "[]"}, nil
}

var _ = Describe("Routers", func() {
	var (
		ctx       context.Context
		vectorP   *stubPipeline
		cypherP   *stubPipeline
		pipelines []retrieval.Pipeline
		in        retrieval.Input
	)

	BeforeEach(func() {
		ctx = context.Background()
		vectorP = &stubPipeline{name: history.SourceVector}
		cypherP = &stubPipeline{name: history.SourceCypher}
		pipelines = []retrieval.Pipeline{vectorP, cypherP}
		in = retrieval.Input{Input: "who?", RephrasedQuestion: "Who directed Heat?"}
	})

	It("StaticRouter always picks its pipeline", func() {
		Expect(retrieval.StaticRouter{Pipeline: cypherP}.Route(ctx, in)).To(BeIdenticalTo(cypherP))
	})

	It("requires pipelines", func() {
		_, err := retrieval.NewLLMRouter(nil, nil, nil)
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("LLMRouter reply parsing",
		func(reply string, expected history.Source) {
			model := testutils.NewScriptedLLM(reply)
			r, err := retrieval.NewLLMRouter(model.Call, pipelines, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Route(ctx, in).Name()).To(Equal(expected))
		},
		Entry("exact name", "cypher", history.SourceCypher),
		Entry("padded and quoted", "  `Cypher`.\n", history.SourceCypher),
		Entry("sentence naming one tool", "I would use the vector tool", history.SourceVector),
		Entry("ambiguous reply", "vector or cypher", history.SourceVector),
		Entry("unknown reply", "search the web", history.SourceVector),
	)

	It("lists every pipeline in the prompt", func() {
		model := testutils.NewScriptedLLM("cypher")
		r, _ := retrieval.NewLLMRouter(model.Call, pipelines, nil)
		r.Route(ctx, in)

		Expect(model.LastPrompt()).To(ContainSubstring("- vector: handles vector questions"))
		Expect(model.LastPrompt()).To(ContainSubstring("- cypher: handles cypher questions"))
		Expect(model.LastPrompt()).To(ContainSubstring("Who directed Heat?"))
	})

	It("falls back to the first pipeline when the model fails", func() {
		model := &testutils.ScriptedLLM{Replies: []testutils.Reply{{Err: errors.New("timeout")}}}
		r, _ := retrieval.NewLLMRouter(model.Call, []retrieval.Pipeline{cypherP, vectorP}, nil)
		Expect(r.Route(ctx, in)).To(BeIdenticalTo(cypherP))
	})

	It("does not ask the model with a single pipeline", func() {
		model := testutils.NewScriptedLLM("vector")
		r, _ := retrieval.NewLLMRouter(model.Call, []retrieval.Pipeline{cypherP}, nil)
		Expect(r.Route(ctx, in)).To(BeIdenticalTo(cypherP))
		Expect(model.Calls()).To(BeZero())
	})
})
