// Package sqlite provides a SQLite-backed history driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/history/sqlhistory"
)

// Driver implements history.Driver using SQLite.
type Driver struct {
	*sqlhistory.Driver
}

// NewDriver creates a new SQLite-backed history driver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string, logger *zap.Logger) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", withBusyTimeout(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serialises writers and keeps ":memory:" databases
	// from splitting per connection.
	db.SetMaxOpenConns(1)

	// SQLite-specific pragmas
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Wrap the database connection with ent's SQL driver
	driver, err := sqlhistory.New(ctx, entsql.OpenDB(dialect.SQLite, db), logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: driver}, nil
}

func withBusyTimeout(dbPath string) string {
	if dbPath == ":memory:" || strings.Contains(dbPath, "_busy_timeout") {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_busy_timeout=5000"
}
