package cypher

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/graph"
)

const DefaultMaxAttempts = 5

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Graph     graph.Graph
	Validator Validator

	// MaxAttempts bounds executions of the query.
	MaxAttempts int

	// RoundTimeout bounds each execution and each repair call.
	RoundTimeout time.Duration

	Observer Observer
}

// Outcome is the result of Execute. Found is false ("no result") when every
// attempt failed.
type Outcome struct {
	Rows     []graph.Row
	Query    string
	Attempts int
	Found    bool
}

// Executor runs a query read-only, feeding database errors back to the
// validator for repair between attempts.
type Executor struct {
	graph        graph.Graph
	validator    Validator
	maxAttempts  int
	roundTimeout time.Duration
	observer     Observer
	logger       *zap.Logger
}

func NewExecutor(c ExecutorConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RoundTimeout <= 0 {
		c.RoundTimeout = DefaultRoundTimeout
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return &Executor{
		graph:        c.Graph,
		validator:    c.Validator,
		maxAttempts:  c.MaxAttempts,
		roundTimeout: c.RoundTimeout,
		observer:     c.Observer,
		logger:       logger,
	}
}

// Execute runs query, returning on the first success. It never returns an
// error: exhaustion is reported as Outcome.Found == false.
func (e *Executor) Execute(ctx context.Context, query, question, schema string) Outcome {
	out := Outcome{Query: query}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		out.Attempts = attempt

		rows, err := e.run(ctx, out.Query)
		if err == nil {
			if rows == nil {
				rows = []graph.Row{}
			}
			out.Rows = rows
			out.Found = true
			e.observer.ExecutionFinished(attempt, true)
			return out
		}

		e.logger.Warn("cypher execution failed",
			zap.Int("attempt", attempt),
			zap.String("cypher", out.Query),
			zap.Error(err),
		)

		if ctx.Err() != nil || attempt == e.maxAttempts {
			break
		}

		repaired, verr := e.repair(ctx, question, schema, out.Query, err)
		if verr != nil {
			e.logger.Warn("cypher repair failed",
				zap.Int("attempt", attempt),
				zap.Error(verr),
			)
			continue
		}
		if text := strings.TrimSpace(repaired.Text); text != "" {
			out.Query = RewriteElementID(text)
		}
	}

	e.logger.Info("cypher execution exhausted, no result",
		zap.Int("attempts", out.Attempts),
		zap.String("cypher", out.Query),
	)
	e.observer.ExecutionFinished(out.Attempts, false)
	return out
}

func (e *Executor) run(ctx context.Context, query string) ([]graph.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, e.roundTimeout)
	defer cancel()
	return e.graph.Query(ctx, query, nil, graph.AccessModeRead)
}

func (e *Executor) repair(ctx context.Context, question, schema, query string, cause error) (Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, e.roundTimeout)
	defer cancel()
	return e.validator.Validate(ctx, ValidationRequest{
		Question: question,
		Schema:   schema,
		Candidate: Candidate{
			Text:   query,
			Errors: []string{cause.Error()},
		},
	})
}
