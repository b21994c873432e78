package cypher

import (
	"context"
	"strings"

	"github.com/papercomputeco/graphchat/pkg/llm"
)

// Generator drafts a Cypher query for a question.
type Generator interface {
	Generate(ctx context.Context, question, schema string) (string, error)
}

// LLMGenerator drafts queries with a model.
type LLMGenerator struct {
	call   llm.CallFunc
	prompt string
}

// NewLLMGenerator uses GenerationPrompt unless prompt is non-empty.
func NewLLMGenerator(call llm.CallFunc, prompt string) *LLMGenerator {
	if prompt == "" {
		prompt = GenerationPrompt
	}
	return &LLMGenerator{call: call, prompt: prompt}
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, question, schema string) (string, error) {
	out, err := g.call(ctx, llm.Render(g.prompt, map[string]string{
		"question": question,
		"schema":   schema,
	}))
	if err != nil {
		return "", err
	}
	text := llm.StripFences(out)
	if strings.HasPrefix(strings.ToLower(text), "cypher:") {
		text = strings.TrimSpace(text[len("cypher:"):])
	}
	if text == "" {
		return "", ErrNoCandidate
	}
	return text, nil
}
