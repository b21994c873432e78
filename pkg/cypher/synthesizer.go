package cypher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxRounds    = 5
	DefaultRoundTimeout = 60 * time.Second
)

// Observer receives loop outcomes, typically for metrics.
type Observer interface {
	SynthesisFinished(rounds int, state string)
	ExecutionFinished(attempts int, found bool)
}

type nopObserver struct{}

func (nopObserver) SynthesisFinished(int, string) {}
func (nopObserver) ExecutionFinished(int, bool)   {}

// SynthesizerConfig configures a Synthesizer.
type SynthesizerConfig struct {
	Generator Generator
	Validator Validator

	// MaxRounds bounds validation rounds (and drafting attempts).
	MaxRounds int

	// RoundTimeout bounds each generate or validate call.
	RoundTimeout time.Duration

	Observer Observer
}

// Synthesis is the detailed result of a synthesis run.
type Synthesis struct {
	Query  string
	State  State
	Rounds int
	Errors []string

	// Fallback is LastCandidate when the query was returned without the
	// validator ever reporting it valid.
	Fallback string
}

// Synthesizer drafts a query and iteratively repairs it with a validator.
type Synthesizer struct {
	generator    Generator
	validator    Validator
	maxRounds    int
	roundTimeout time.Duration
	observer     Observer
	logger       *zap.Logger
}

func NewSynthesizer(c SynthesizerConfig, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.RoundTimeout <= 0 {
		c.RoundTimeout = DefaultRoundTimeout
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return &Synthesizer{
		generator:    c.Generator,
		validator:    c.Validator,
		maxRounds:    c.MaxRounds,
		roundTimeout: c.RoundTimeout,
		observer:     c.Observer,
		logger:       logger,
	}
}

// Synthesize returns query text for question. It fails only with
// ErrNoCandidate, when drafting never produced any text.
func (s *Synthesizer) Synthesize(ctx context.Context, question, schema string) (string, error) {
	result, err := s.Run(ctx, question, schema)
	if err != nil {
		return "", err
	}
	return result.Query, nil
}

// Run is Synthesize with the loop's final state exposed.
func (s *Synthesizer) Run(ctx context.Context, question, schema string) (*Synthesis, error) {
	var (
		state     = Drafting
		candidate Candidate
		attempt   int
		lastErr   error
	)

	for state == Drafting {
		attempt++
		round := Round{Number: attempt, Max: s.maxRounds}

		text, err := s.draft(ctx, question, schema)
		if err != nil {
			round.Err = Classify(ctx, attempt, err)
			lastErr = round.Err
			s.logRound("cypher draft failed", state, round)
		} else {
			candidate = Draft(text)
		}
		state = Next(state, round)
	}

	if candidate.Text == "" {
		s.observer.SynthesisFinished(0, state.String())
		if lastErr == nil {
			return nil, ErrNoCandidate
		}
		return nil, fmt.Errorf("%w: %w", ErrNoCandidate, lastErr)
	}

	rounds := 0
	for !state.Terminal() {
		rounds++
		round := Round{Number: rounds, Max: s.maxRounds}

		next, err := s.validate(ctx, question, schema, candidate)
		if err != nil {
			round.Err = Classify(ctx, rounds, err)
			s.logRound("cypher validation round failed", state, round)
		} else {
			if strings.TrimSpace(next.Text) == "" {
				next.Text = candidate.Text
			}
			candidate = next
		}
		round.Errors = candidate.Errors
		state = Next(state, round)

		s.logger.Debug("cypher validation round",
			zap.Int("round", rounds),
			zap.String("state", state.String()),
			zap.Strings("errors", candidate.Errors),
		)
	}

	result := &Synthesis{
		Query:  RewriteElementID(candidate.Text),
		State:  state,
		Rounds: rounds,
		Errors: candidate.Errors,
	}
	if state != Corrected {
		result.Fallback = LastCandidate
		s.logger.Info("cypher synthesis exhausted, using last candidate",
			zap.Int("rounds", rounds),
			zap.Strings("errors", candidate.Errors),
		)
	}

	s.observer.SynthesisFinished(rounds, state.String())
	return result, nil
}

func (s *Synthesizer) draft(ctx context.Context, question, schema string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.roundTimeout)
	defer cancel()

	text, err := s.generator.Generate(ctx, question, schema)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoCandidate
	}
	return strings.TrimSpace(text), nil
}

func (s *Synthesizer) validate(ctx context.Context, question, schema string, c Candidate) (Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.roundTimeout)
	defer cancel()

	next, err := s.validator.Validate(ctx, ValidationRequest{
		Question:  question,
		Schema:    schema,
		Candidate: c.clone(),
	})
	if err != nil {
		return Candidate{}, err
	}
	return next, nil
}

func (s *Synthesizer) logRound(msg string, state State, r Round) {
	s.logger.Warn(msg,
		zap.Int("round", r.Number),
		zap.String("state", state.String()),
		zap.String("kind", r.Err.Kind.String()),
		zap.Bool("transient", IsTransient(r.Err)),
		zap.Bool("malformed", errors.Is(r.Err, ErrMalformedValidation)),
		zap.Error(r.Err.Err),
	)
}
