// Package sqlhistory implements history.Driver on ent's SQL dialect layer,
// shared by the sqlite and postgres backends. The chain is stored as a
// prev_id linked list per session, and sessions.last_response_id is the tail
// pointer, advanced by compare-and-swap on a version column.
package sqlhistory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/history"
)

// DefaultMaxRetries bounds compare-and-swap retries per append.
const DefaultMaxRetries = 5

// Driver implements history.Driver on an ent SQL driver.
type Driver struct {
	drv        *entsql.Driver
	maxRetries int
	logger     *zap.Logger
	now        func() time.Time
}

// Ensure Driver implements history.Driver
var _ history.Driver = (*Driver)(nil)

// New migrates the history tables and returns a driver over drv.
func New(ctx context.Context, drv *entsql.Driver, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := Migrate(ctx, drv); err != nil {
		return nil, err
	}

	return &Driver{
		drv:        drv,
		maxRetries: DefaultMaxRetries,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// DB returns the underlying database handle.
func (d *Driver) DB() *sql.DB {
	return d.drv.DB()
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

// Append implements history.Driver.
func (d *Driver) Append(ctx context.Context, sessionID string, turn *history.Turn) (string, error) {
	if err := history.Validate(sessionID, turn); err != nil {
		return "", err
	}

	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		id, err := d.tryAppend(ctx, sessionID, turn)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, history.ErrConflict) && !isSerializationFailure(err) {
			return "", fmt.Errorf("failed to save history: %w", err)
		}
		d.logger.Debug("history append conflict, retrying",
			zap.String("session_id", sessionID),
			zap.Int("attempt", attempt),
		)
	}
	return "", fmt.Errorf("failed to save history: %w", history.ErrConflict)
}

func (d *Driver) tryAppend(ctx context.Context, sessionID string, turn *history.Turn) (string, error) {
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	b := d.builder()
	now := d.now().UTC()

	upsert := b.Insert(sessionsTable).
		Columns("id", "version", "created_at").
		Values(sessionID, 0, now).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing())
	if _, err := exec(ctx, tx, upsert); err != nil {
		return "", err
	}

	var (
		tail    sql.NullString
		version int64
	)
	head := b.Select("last_response_id", "version").
		From(b.Table(sessionsTable)).
		Where(entsql.EQ("id", sessionID))
	if err := queryRow(ctx, tx, head, &tail, &version); err != nil {
		return "", err
	}

	id := uuid.NewString()
	insert := b.Insert(responsesTable).
		Columns("id", "session_id", "prev_id", "created_at", "source", "input", "rephrased_question", "output", "query").
		Values(id, sessionID, nullable(tail.String), now, string(turn.Source), turn.Input, turn.RephrasedQuestion, turn.Output, nullable(turn.Query))
	if _, err := exec(ctx, tx, insert); err != nil {
		return "", err
	}

	if len(turn.SourceIDs) > 0 {
		links := b.Insert(responseContextTable).Columns("response_id", "position", "source_id")
		for pos, sourceID := range turn.SourceIDs {
			links.Values(id, pos, sourceID)
		}
		if _, err := exec(ctx, tx, links); err != nil {
			return "", err
		}
	}

	advance := b.Update(sessionsTable).
		Set("last_response_id", id).
		Add("version", 1).
		Where(entsql.And(
			entsql.EQ("id", sessionID),
			entsql.EQ("version", version),
		))
	n, err := exec(ctx, tx, advance)
	if err != nil {
		return "", err
	}
	if n != 1 {
		return "", history.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Read implements history.Driver.
func (d *Driver) Read(ctx context.Context, sessionID string, window int) ([]*history.Turn, error) {
	if sessionID == "" {
		return nil, history.ErrEmptySession
	}
	window = history.Window(window)
	b := d.builder()

	var tail sql.NullString
	head := b.Select("last_response_id").
		From(b.Table(sessionsTable)).
		Where(entsql.EQ("id", sessionID))
	err := queryRow(ctx, d.drv, head, &tail)
	if errors.Is(err, sql.ErrNoRows) {
		return []*history.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]*history.Turn, 0, window+1)
	next := tail
	for next.Valid && len(turns) <= window {
		turn, prev, err := d.load(ctx, sessionID, next.String)
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		turns = append(turns, turn)
		next = prev
	}
	slices.Reverse(turns)
	return turns, nil
}

func (d *Driver) load(ctx context.Context, sessionID, id string) (*history.Turn, sql.NullString, error) {
	var (
		b      = d.builder()
		turn   = &history.Turn{ID: id, SessionID: sessionID, SourceIDs: []string{}}
		prev   sql.NullString
		source string
		query  sql.NullString
	)
	row := b.Select("prev_id", "created_at", "source", "input", "rephrased_question", "output", "query").
		From(b.Table(responsesTable)).
		Where(entsql.EQ("id", id))
	if err := queryRow(ctx, d.drv, row, &prev, &turn.CreatedAt, &source, &turn.Input, &turn.RephrasedQuestion, &turn.Output, &query); err != nil {
		return nil, prev, err
	}
	turn.Source = history.Source(source)
	turn.Query = query.String
	turn.CreatedAt = turn.CreatedAt.UTC()

	links := b.Select("source_id").
		From(b.Table(responseContextTable)).
		Where(entsql.EQ("response_id", id)).
		OrderBy("position")
	stmt, args := links.Query()
	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, stmt, args, rows); err != nil {
		return nil, prev, err
	}
	defer rows.Close()
	for rows.Next() {
		var sourceID string
		if err := rows.Scan(&sourceID); err != nil {
			return nil, prev, err
		}
		turn.SourceIDs = append(turn.SourceIDs, sourceID)
	}
	return turn, prev, rows.Err()
}

// Clear implements history.Driver. Context links go with their responses
// through the cascading foreign key.
func (d *Driver) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return history.ErrEmptySession
	}

	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	defer tx.Rollback()

	b := d.builder()
	stmts := []entsql.Querier{
		b.Update(sessionsTable).
			SetNull("last_response_id").
			Add("version", 1).
			Where(entsql.EQ("id", sessionID)),
		b.Delete(responsesTable).
			Where(entsql.EQ("session_id", sessionID)),
	}
	for _, stmt := range stmts {
		if _, err := exec(ctx, tx, stmt); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close implements history.Driver.
func (d *Driver) Close() error {
	return d.drv.Close()
}

// exec runs a built statement and returns the number of affected rows.
func exec(ctx context.Context, conn dialect.ExecQuerier, q entsql.Querier) (int64, error) {
	stmt, args := q.Query()
	var res sql.Result
	if err := conn.Exec(ctx, stmt, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// queryRow scans the first row of a built query into dest, or returns
// sql.ErrNoRows. Rows are closed before it returns.
func queryRow(ctx context.Context, conn dialect.ExecQuerier, q entsql.Querier, dest ...any) error {
	stmt, args := q.Query()
	rows := &entsql.Rows{}
	if err := conn.Query(ctx, stmt, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return rows.Scan(dest...)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isSerializationFailure matches postgres SQLSTATE 40001 and sqlite busy
// errors by message, to stay independent of the concrete driver.
func isSerializationFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "40001") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "database is locked")
}
