// Package neo4j stores conversation history in the graph itself: Session and
// Response nodes linked by HAS_RESPONSE, NEXT, LAST_RESPONSE and CONTEXT.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/history"
)

// Driver implements history.Driver on a shared neo4j driver.
type Driver struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// Ensure Driver implements history.Driver
var _ history.Driver = (*Driver)(nil)

// NewDriver wraps a neo4j driver owned by the caller and ensures the session
// uniqueness constraint exists.
func NewDriver(ctx context.Context, driver neo4j.DriverWithContext, database string, logger *zap.Logger) (*Driver, error) {
	if driver == nil {
		return nil, errors.New("neo4j driver is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Driver{
		driver:   driver,
		database: database,
		logger:   logger,
	}

	if _, err := neo4j.ExecuteQuery(ctx, driver, sessionConstraintQuery, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(database),
		neo4j.ExecuteQueryWithWritersRouting(),
	); err != nil {
		return nil, fmt.Errorf("failed to create session constraint: %w", err)
	}

	return d, nil
}

func (d *Driver) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: d.database,
	})
}

// Append implements history.Driver.
func (d *Driver) Append(ctx context.Context, sessionID string, turn *history.Turn) (string, error) {
	if err := history.Validate(sessionID, turn); err != nil {
		return "", err
	}

	ids := turn.SourceIDs
	if ids == nil {
		ids = []string{}
	}
	var cypher any
	if turn.Query != "" {
		cypher = turn.Query
	}

	params := map[string]any{
		"sessionId":         sessionID,
		"id":                uuid.NewString(),
		"source":            string(turn.Source),
		"input":             turn.Input,
		"rephrasedQuestion": turn.RephrasedQuestion,
		"output":            turn.Output,
		"cypher":            cypher,
		"ids":               ids,
	}

	session := d.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	id, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, appendQuery, params)
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		id, _, err := neo4j.GetRecordValue[string](record, "id")
		return id, err
	})
	if err != nil {
		return "", fmt.Errorf("failed to save history: %w", err)
	}

	d.logger.Debug("appended history turn",
		zap.String("session_id", sessionID),
		zap.String("turn_id", id.(string)),
	)
	return id.(string), nil
}

// Read implements history.Driver.
func (d *Driver) Read(ctx context.Context, sessionID string, window int) ([]*history.Turn, error) {
	if sessionID == "" {
		return nil, history.ErrEmptySession
	}
	window = history.Window(window)
	query := fmt.Sprintf(readQueryTemplate, window, window)

	session := d.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	turns, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"sessionId": sessionID})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		turns := make([]*history.Turn, 0, len(records))
		for _, record := range records {
			turns = append(turns, recordToTurn(sessionID, record))
		}
		return turns, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return turns.([]*history.Turn), nil
}

// Clear implements history.Driver.
func (d *Driver) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return history.ErrEmptySession
	}

	session := d.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, clearQuery, map[string]any{"sessionId": sessionID})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close implements history.Driver. The neo4j driver is shared and closed by
// its owner.
func (d *Driver) Close() error {
	return nil
}

func recordToTurn(sessionID string, record *neo4j.Record) *history.Turn {
	str := func(key string) string {
		v, _, _ := neo4j.GetRecordValue[string](record, key)
		return v
	}
	createdAt, _, _ := neo4j.GetRecordValue[time.Time](record, "createdAt")

	turn := &history.Turn{
		ID:                str("id"),
		SessionID:         sessionID,
		CreatedAt:         createdAt,
		Source:            history.Source(str("source")),
		Input:             str("input"),
		RephrasedQuestion: str("rephrasedQuestion"),
		Output:            str("output"),
		Query:             str("cypher"),
	}

	turn.SourceIDs = stringList(record, "context")
	if len(turn.SourceIDs) == 0 {
		turn.SourceIDs = stringList(record, "ids")
	}
	return turn
}

func stringList(record *neo4j.Record, key string) []string {
	raw, _, _ := neo4j.GetRecordValue[[]any](record, key)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
