// Package answer composes the final reply from retrieved context.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/llm"
)

// Prompt grounds the answer in the retrieved context. It takes {question}
// and {context}.
const Prompt = `
Use only the following context to answer the following question.

Question:
{question}

Context:
{context}

Answer as if you have been asked the original question.
Do not use your pre-trained knowledge.

If you don't know the answer, just say that you don't know, don't try to make up an answer.
Include links and sources where possible.
`

// AuthoritativePrompt is used for database results, which are treated as
// the definitive answer even when they look incomplete.
const AuthoritativePrompt = `
Use the following context to answer the following question.
The context is provided by an authoritative source, you must never doubt
it or attempt to use your pre-trained knowledge to correct the answer.

Make the answer sound like it is a response to the question.
Do not mention that you have based your response on the context.

Here is an example:

Question: Who played Woody in Toy Story?
Context: ['role': 'Woody', 'actor': 'Tom Hanks']
Response: Tom Hanks played Woody in Toy Story.

If no context is provided, say that you don't know,
don't try to make up an answer, do not fall back on your internal knowledge.
If no context is provided you may also ask for clarification.

Include links and sources where possible.

Question:
{question}

Context:
{context}
`

// Composer asks a model to answer a question from context.
type Composer struct {
	call   llm.CallFunc
	prompt string
	logger *zap.Logger
}

// New creates a Composer using Prompt unless prompt is non-empty.
func New(call llm.CallFunc, prompt string, logger *zap.Logger) *Composer {
	if prompt == "" {
		prompt = Prompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{call: call, prompt: prompt, logger: logger}
}

// Compose answers question from the retrieved context. An empty context is
// still sent so the model can reply that it does not know.
func (c *Composer) Compose(ctx context.Context, question, retrieved string) (string, error) {
	out, err := c.call(ctx, llm.Render(c.prompt, map[string]string{
		"question": question,
		"context":  retrieved,
	}))
	if err != nil {
		return "", fmt.Errorf("composing answer: %w", err)
	}

	c.logger.Debug("composed answer",
		zap.Int("context_bytes", len(retrieved)),
		zap.Int("answer_bytes", len(out)),
	)
	return strings.TrimSpace(out), nil
}
