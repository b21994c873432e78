package answer_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/pkg/answer"
	testutils "github.com/papercomputeco/graphchat/pkg/utils/test"
)

var _ = Describe("Composer", func() {
	ctx := context.Background()

	It("grounds the prompt in the question and context", func() {
		model := testutils.NewScriptedLLM(" The CEO of Neo4j is Emil Eifrem. \n")
		c := answer.New(model.Call, "", nil)

		out, err := c.Compose(ctx, "Who is the CEO of Neo4j?", "Neo4j CEO: Emil Eifrem")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("The CEO of Neo4j is Emil Eifrem."))

		prompt := model.LastPrompt()
		Expect(prompt).To(ContainSubstring("Question:\nWho is the CEO of Neo4j?"))
		Expect(prompt).To(ContainSubstring("Context:\nNeo4j CEO: Emil Eifrem"))
		Expect(prompt).To(ContainSubstring("Do not use your pre-trained knowledge."))
		Expect(prompt).To(ContainSubstring("Include links and sources where possible."))
	})

	It("still calls the model with an empty context", func() {
		model := testutils.NewScriptedLLM("I don't know.")
		c := answer.New(model.Call, "", nil)

		out, err := c.Compose(ctx, "Who is the CEO of Neo4j?", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("I don't know."))
		Expect(model.Calls()).To(Equal(1))
	})

	It("uses a custom prompt", func() {
		model := testutils.NewScriptedLLM("Tom Hanks played Woody in Toy Story.")
		c := answer.New(model.Call, answer.AuthoritativePrompt, nil)

		_, err := c.Compose(ctx, "Who played Woody?", `{"actor":"Tom Hanks"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(model.LastPrompt()).To(ContainSubstring("authoritative source"))
		Expect(model.LastPrompt()).To(ContainSubstring(`{"actor":"Tom Hanks"}`))
	})

	It("wraps model errors", func() {
		model := &testutils.ScriptedLLM{Replies: []testutils.Reply{{Err: errors.New("overloaded")}}}
		c := answer.New(model.Call, "", nil)

		_, err := c.Compose(ctx, "q", "c")
		Expect(err).To(MatchError(ContainSubstring("overloaded")))
	})
})
