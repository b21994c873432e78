package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/cypher"
	"github.com/papercomputeco/graphchat/pkg/graph"
	"github.com/papercomputeco/graphchat/pkg/history"
)

const cypherDescription = "For questions about specific facts in the database: " +
	"who acted in or directed a movie, ratings, release years, genres, counts " +
	"and relationships between people and movies."

// Synthesizer produces query text for a question.
type Synthesizer interface {
	Synthesize(ctx context.Context, question, schema string) (string, error)
}

// Executor runs a query with repair.
type Executor interface {
	Execute(ctx context.Context, query, question, schema string) cypher.Outcome
}

// CypherConfig configures a CypherPipeline.
type CypherConfig struct {
	Graph       graph.Graph
	Synthesizer Synthesizer
	Executor    Executor

	// Description overrides the routing description.
	Description string
}

// CypherPipeline answers from the rows of a synthesized query.
type CypherPipeline struct {
	graph       graph.Graph
	synthesizer Synthesizer
	executor    Executor
	description string
	logger      *zap.Logger
}

var _ Pipeline = (*CypherPipeline)(nil)

func NewCypherPipeline(c CypherConfig, logger *zap.Logger) *CypherPipeline {
	if c.Description == "" {
		c.Description = cypherDescription
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CypherPipeline{
		graph:       c.Graph,
		synthesizer: c.Synthesizer,
		executor:    c.Executor,
		description: c.Description,
		logger:      logger,
	}
}

func (p *CypherPipeline) Name() history.Source { return history.SourceCypher }

func (p *CypherPipeline) Description() string { return p.description }

// Retrieve synthesizes a query, executes it and serializes the rows. A query
// that could not be drafted or never ran successfully yields an empty
// context rather than an error.
func (p *CypherPipeline) Retrieve(ctx context.Context, in Input) (*Retrieval, error) {
	question := in.Question()
	out := &Retrieval{Source: history.SourceCypher, Context: "[]", SourceIDs: []string{}}

	schema, err := p.graph.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading schema: %w", ErrRetrieval, err)
	}

	query, err := p.synthesizer.Synthesize(ctx, question, schema)
	if err != nil {
		if !errors.Is(err, cypher.ErrNoCandidate) {
			return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
		}
		p.logger.Warn("no cypher candidate, answering without context",
			zap.String("question", question),
			zap.Error(err),
		)
		return out, nil
	}

	outcome := p.executor.Execute(ctx, query, question, schema)
	out.Query = outcome.Query
	if !outcome.Found {
		return out, nil
	}

	out.SourceIDs = ExtractIDs(outcome.Rows)
	if out.Context, err = SerializeRows(outcome.Rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	p.logger.Debug("cypher retrieval",
		zap.String("question", question),
		zap.String("cypher", outcome.Query),
		zap.Int("rows", len(outcome.Rows)),
		zap.Int("attempts", outcome.Attempts),
	)
	return out, nil
}
