// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *zap.Logger
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables are keyed by integer rowid, so documents live in a
	// regular table whose rowid is shared with the embedding row.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vec_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`, c.Dimensions),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	logger.Info("sqlite-vec vector driver initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// encodeVector converts a float32 slice to the little-endian BLOB format
// sqlite-vec expects.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Add upserts documents and replaces their embeddings.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: doc %s has %d dimensions, want %d",
				vector.ErrEmbedding, doc.ID, len(doc.Embedding), d.dimensions)
		}

		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
		}
		if doc.Metadata == nil {
			meta = []byte("{}")
		}

		var rowID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO vec_documents(doc_id, content, metadata) VALUES (?, ?, ?)
			ON CONFLICT(doc_id) DO UPDATE SET content = excluded.content, metadata = excluded.metadata
			RETURNING rowid`,
			doc.ID, doc.Content, string(meta),
		).Scan(&rowID)
		if err != nil {
			return fmt.Errorf("upserting document %s: %w", doc.ID, err)
		}

		// vec0 does not support UPDATE
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, encodeVector(doc.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to sqlite-vec",
		zap.Int("count", len(docs)),
	)
	return nil
}

// Query runs a KNN match on the vec0 table and joins the documents back in.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT d.doc_id, d.content, d.metadata, ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_documents d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, encodeVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := []vector.QueryResult{}
	for rows.Next() {
		var (
			doc      vector.Document
			meta     string
			distance float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for doc %s: %w", doc.ID, err)
		}

		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    float32(1.0 / (1.0 + distance)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)
	return results, nil
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

// Get retrieves documents with their embeddings by ID.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	in, args := inClause(ids)
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT d.doc_id, d.content, d.metadata, ve.embedding
		FROM vec_documents d
		LEFT JOIN vec_embeddings ve ON ve.rowid = d.rowid
		WHERE d.doc_id IN (%s)
	`, in), args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]vector.Document, 0, len(ids))
	for rows.Next() {
		var (
			doc  vector.Document
			meta string
			blob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for doc %s: %w", doc.ID, err)
		}
		if len(blob) > 0 {
			if doc.Embedding, err = decodeVector(blob); err != nil {
				return nil, err
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Delete removes documents and their embeddings by ID.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	in, args := inClause(ids)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM vec_embeddings WHERE rowid IN (SELECT rowid FROM vec_documents WHERE doc_id IN (%s))`, in,
	), args...); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM vec_documents WHERE doc_id IN (%s)`, in,
	), args...); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted documents from sqlite-vec",
		zap.Int("count", len(ids)),
	)
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}
