// Package historyutils builds a history.Driver from configuration.
package historyutils

import (
	"context"
	"fmt"

	neo4jdriver "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/history/inmemory"
	historyneo4j "github.com/papercomputeco/graphchat/pkg/history/neo4j"
	"github.com/papercomputeco/graphchat/pkg/history/postgres"
	"github.com/papercomputeco/graphchat/pkg/history/sqlite"
)

const (
	ProviderNeo4j    = "neo4j"
	ProviderInMemory = "inmemory"
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
)

type NewDriverOpts struct {
	ProviderType string

	// Target is the sqlite path or postgres connection string.
	Target string

	// Neo4j and Database are used by the neo4j provider, sharing the graph's
	// driver.
	Neo4j    neo4jdriver.DriverWithContext
	Database string

	Logger *zap.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (history.Driver, error) {
	switch o.ProviderType {
	case ProviderNeo4j, "":
		return historyneo4j.NewDriver(ctx, o.Neo4j, o.Database, o.Logger)
	case ProviderInMemory:
		return inmemory.NewDriver(), nil
	case ProviderSQLite:
		return sqlite.NewDriver(ctx, o.Target, o.Logger)
	case ProviderPostgres:
		return postgres.NewDriver(ctx, o.Target, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported history provider: %s", o.ProviderType)
	}
}
