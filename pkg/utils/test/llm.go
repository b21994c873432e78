package testutils

import (
	"context"
	"sync"
)

// Reply is one scripted model response.
type Reply struct {
	Text string
	Err  error
}

// ScriptedLLM is a fake model. Responder, when set, answers every prompt;
// otherwise Replies are returned in order and the last one repeats.
type ScriptedLLM struct {
	mu sync.Mutex

	Replies   []Reply
	Responder func(prompt string) (string, error)

	// Prompts records every prompt received.
	Prompts []string
}

// NewScriptedLLM replays the given texts.
func NewScriptedLLM(texts ...string) *ScriptedLLM {
	s := &ScriptedLLM{}
	for _, t := range texts {
		s.Replies = append(s.Replies, Reply{Text: t})
	}
	return s
}

// Call satisfies llm.CallFunc.
func (s *ScriptedLLM) Call(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	idx := len(s.Prompts)
	s.Prompts = append(s.Prompts, prompt)
	responder := s.Responder
	replies := s.Replies
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if responder != nil {
		return responder(prompt)
	}
	if len(replies) == 0 {
		return "", nil
	}
	if idx >= len(replies) {
		idx = len(replies) - 1
	}
	return replies[idx].Text, replies[idx].Err
}

// Calls returns how many prompts were received.
func (s *ScriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

// LastPrompt returns the most recent prompt, or "".
func (s *ScriptedLLM) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Prompts) == 0 {
		return ""
	}
	return s.Prompts[len(s.Prompts)-1]
}
