package cypher_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/pkg/cypher"
	testutils "github.com/papercomputeco/graphchat/pkg/utils/test"
)

var _ = Describe("ParseValidation", func() {
	It("decodes corrected text and errors", func() {
		c, err := cypher.ParseValidation(`{"cypher": "MATCH (m:Movie) RETURN m.title", "errors": ["label"]}`, "old")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Text).To(Equal("MATCH (m:Movie) RETURN m.title"))
		Expect(c.Errors).To(Equal([]string{"label"}))
	})

	It("accepts fenced output with surrounding prose", func() {
		c, err := cypher.ParseValidation("```json\nHere you go: {\"cypher\": \"RETURN 1\", \"errors\": []}\n```", "old")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Text).To(Equal("RETURN 1"))
		Expect(c.Valid()).To(BeTrue())
	})

	It("keeps the previous text when cypher is blank", func() {
		c, err := cypher.ParseValidation(`{"cypher": "", "errors": []}`, "RETURN 2")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Text).To(Equal("RETURN 2"))
	})

	It("stringifies structured errors", func() {
		c, err := cypher.ParseValidation(`{"cypher": "RETURN 1", "errors": [{"line": 1}]}`, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Errors).To(Equal([]string{`{"line":1}`}))
	})

	It("fails on non-JSON output", func() {
		_, err := cypher.ParseValidation("looks fine to me", "RETURN 1")
		Expect(errors.Is(err, cypher.ErrMalformedValidation)).To(BeTrue())
	})
})

var _ = Describe("LLMValidator", func() {
	It("renders the candidate and errors into the prompt", func() {
		model := testutils.NewScriptedLLM(`{"cypher": "RETURN 1", "errors": []}`)
		v := cypher.NewLLMValidator(model.Call, "")

		c, err := v.Validate(context.Background(), cypher.ValidationRequest{
			Question:  "who directed Heat?",
			Schema:    "(:Person)-[:DIRECTED]->(:Movie)",
			Candidate: cypher.Candidate{Text: "RETURN 0", Errors: []string{"Unknown label"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Text).To(Equal("RETURN 1"))

		prompt := model.LastPrompt()
		Expect(prompt).To(ContainSubstring("who directed Heat?"))
		Expect(prompt).To(ContainSubstring("RETURN 0"))
		Expect(prompt).To(ContainSubstring(`["Unknown label"]`))
		Expect(prompt).To(ContainSubstring("(:Person)-[:DIRECTED]->(:Movie)"))
	})
})

var _ = Describe("LLMGenerator", func() {
	It("strips code fences from the drafted query", func() {
		model := testutils.NewScriptedLLM("```cypher\nMATCH (m:Movie) RETURN m.title\n```")
		g := cypher.NewLLMGenerator(model.Call, "")

		text, err := g.Generate(context.Background(), "list movies", "schema")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("MATCH (m:Movie) RETURN m.title"))
		Expect(model.LastPrompt()).To(ContainSubstring("list movies"))
	})

	It("reports an empty draft as ErrNoCandidate", func() {
		g := cypher.NewLLMGenerator(testutils.NewScriptedLLM("  ").Call, "")
		_, err := g.Generate(context.Background(), "q", "s")
		Expect(err).To(MatchError(cypher.ErrNoCandidate))
	})
})
