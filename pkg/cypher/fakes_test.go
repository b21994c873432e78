package cypher_test

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/graphchat/pkg/cypher"
)

// fakeGenerator returns Text, or Err, and counts calls.
type fakeGenerator struct {
	Text  string
	Err   error
	Calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, _, _ string) (string, error) {
	g.Calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.Text, g.Err
}

// fakeValidator replays scripted results; Fn, when set, computes them.
type fakeValidator struct {
	mu       sync.Mutex
	Results  []validation
	Fn       func(req cypher.ValidationRequest) (cypher.Candidate, error)
	Requests []cypher.ValidationRequest
}

type validation struct {
	Candidate cypher.Candidate
	Err       error
}

func (v *fakeValidator) Validate(ctx context.Context, req cypher.ValidationRequest) (cypher.Candidate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	idx := len(v.Requests)
	v.Requests = append(v.Requests, req)

	if v.Fn != nil {
		return v.Fn(req)
	}
	if len(v.Results) == 0 {
		return cypher.Candidate{}, errors.New("no scripted validation")
	}
	if idx >= len(v.Results) {
		idx = len(v.Results) - 1
	}
	r := v.Results[idx]
	return r.Candidate, r.Err
}

// observer records the last reported outcomes.
type observer struct {
	rounds   int
	state    string
	attempts int
	found    bool
}

func (o *observer) SynthesisFinished(rounds int, state string) {
	o.rounds, o.state = rounds, state
}

func (o *observer) ExecutionFinished(attempts int, found bool) {
	o.attempts, o.found = attempts, found
}
