// Package rephrase turns a follow-up question into a standalone one using the
// recent conversation history.
package rephrase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/llm"
)

// NoHistory stands in for an empty conversation.
const NoHistory = "No history"

// Prompt takes {history} and {input}.
const Prompt = `
Given the following conversation and a question,
rephrase the follow-up question to be a standalone question about the
subject of the conversation history.

If you do not have the required information required to construct
a standalone question, ask for clarification.

Always include the subject of the history in the question.

History:
{history}

Question:
{input}
`

// FormatHistory renders turns oldest first as Human/AI line pairs.
func FormatHistory(turns []*history.Turn) string {
	if len(turns) == 0 {
		return NoHistory
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, "Human: "+t.Input+"\nAI: "+t.Output)
	}
	return strings.Join(lines, "\n")
}

// Rephraser asks a model for a standalone question.
type Rephraser struct {
	call   llm.CallFunc
	logger *zap.Logger
}

// New creates a Rephraser.
func New(call llm.CallFunc, logger *zap.Logger) *Rephraser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rephraser{call: call, logger: logger}
}

// Rephrase returns the standalone question, or a clarification request when
// the model cannot build one.
func (r *Rephraser) Rephrase(ctx context.Context, input string, turns []*history.Turn) (string, error) {
	out, err := r.call(ctx, llm.Render(Prompt, map[string]string{
		"history": FormatHistory(turns),
		"input":   input,
	}))
	if err != nil {
		return "", fmt.Errorf("rephrasing question: %w", err)
	}

	rephrased := strings.TrimSpace(out)
	if rephrased == "" {
		return "", fmt.Errorf("rephrasing question: %w", llm.ErrEmptyCompletion)
	}

	r.logger.Debug("rephrased question",
		zap.String("input", input),
		zap.String("rephrased", rephrased),
		zap.Int("history", len(turns)),
	)
	return rephrased, nil
}
