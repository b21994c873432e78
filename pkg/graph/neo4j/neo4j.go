// Package neo4j implements graph.Graph on top of the official Neo4j driver.
package neo4j

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/graph"
)

// Config holds connection settings for a Neo4j database.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Graph is a graph.Graph backed by a neo4j.DriverWithContext.
type Graph struct {
	driver   neo4j.DriverWithContext
	database string
	owned    bool
	logger   *zap.Logger

	schemaMu sync.Mutex
	schema   string
}

// Ensure Graph implements graph.Graph
var _ graph.Graph = (*Graph)(nil)

// NewDriver opens a pooled driver and verifies it can reach the server.
func NewDriver(ctx context.Context, c Config) (neo4j.DriverWithContext, error) {
	if c.URI == "" {
		return nil, fmt.Errorf("%w: neo4j URI is required", graph.ErrConnection)
	}

	driver, err := neo4j.NewDriverWithContext(c.URI, neo4j.BasicAuth(c.Username, c.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", graph.ErrConnection, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("%w: %w", graph.ErrConnection, err)
	}

	return driver, nil
}

// NewGraph connects to Neo4j and returns a Graph that owns the driver.
func NewGraph(ctx context.Context, c Config, logger *zap.Logger) (*Graph, error) {
	driver, err := NewDriver(ctx, c)
	if err != nil {
		return nil, err
	}
	g := WithDriver(driver, c.Database, logger)
	g.owned = true

	g.logger.Info("connected to neo4j",
		zap.String("uri", c.URI),
		zap.String("database", c.Database),
	)
	return g, nil
}

// WithDriver wraps an existing driver. Close does not close a shared driver.
func WithDriver(driver neo4j.DriverWithContext, database string, logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph{
		driver:   driver,
		database: database,
		logger:   logger,
	}
}

// Driver exposes the underlying driver so other neo4j-backed components can
// share its connection pool.
func (g *Graph) Driver() neo4j.DriverWithContext {
	return g.driver
}

// Database returns the configured database name ("" = server default).
func (g *Graph) Database() string {
	return g.database
}

// Query implements graph.Graph.
func (g *Graph) Query(ctx context.Context, cypher string, params map[string]any, mode graph.AccessMode) ([]graph.Row, error) {
	if strings.TrimSpace(cypher) == "" {
		return nil, graph.ErrEmptyQuery
	}

	routing := neo4j.ExecuteQueryWithReadersRouting()
	if mode == graph.AccessModeWrite {
		routing = neo4j.ExecuteQueryWithWritersRouting()
	}

	result, err := neo4j.ExecuteQuery(ctx, g.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		routing,
	)
	if err != nil {
		return nil, err
	}

	rows := make([]graph.Row, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, RecordToRow(record.Keys, record.Values))
	}

	g.logger.Debug("executed cypher",
		zap.Int("rows", len(rows)),
		zap.String("cypher", cypher),
	)
	return rows, nil
}

// Schema implements graph.Graph. The schema is introspected once and cached
// until RefreshSchema is called.
func (g *Graph) Schema(ctx context.Context) (string, error) {
	g.schemaMu.Lock()
	defer g.schemaMu.Unlock()

	if g.schema != "" {
		return g.schema, nil
	}
	schema, err := g.introspect(ctx)
	if err != nil {
		return "", err
	}
	g.schema = schema
	return schema, nil
}

// RefreshSchema re-reads the schema from the database.
func (g *Graph) RefreshSchema(ctx context.Context) (string, error) {
	g.schemaMu.Lock()
	g.schema = ""
	g.schemaMu.Unlock()
	return g.Schema(ctx)
}

// Close implements graph.Graph.
func (g *Graph) Close() error {
	if !g.owned {
		return nil
	}
	return g.driver.Close(context.Background())
}
