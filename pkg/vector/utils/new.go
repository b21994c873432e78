// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/graph"
	"github.com/papercomputeco/graphchat/pkg/vector"
	"github.com/papercomputeco/graphchat/pkg/vector/chroma"
	"github.com/papercomputeco/graphchat/pkg/vector/neo4jvec"
	"github.com/papercomputeco/graphchat/pkg/vector/qdrant"
	"github.com/papercomputeco/graphchat/pkg/vector/sqlitevec"
)

const (
	ProviderNeo4j     = "neo4j"
	ProviderChroma    = "chroma"
	ProviderQdrant    = "qdrant"
	ProviderSQLiteVec = "sqlite"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// Target is the chroma URL, the qdrant host[:port] or the sqlite path.
	Target string

	// Collection is the chroma/qdrant collection or the neo4j index name.
	Collection string
	APIKey     string
	Dimensions uint

	// Graph backs the neo4j provider.
	Graph graph.Graph
	Neo4j neo4jvec.Config

	Logger *zap.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderNeo4j, "":
		cfg := o.Neo4j
		if cfg.IndexName == "" {
			cfg.IndexName = o.Collection
		}
		if cfg.Dimensions == 0 {
			cfg.Dimensions = int(o.Dimensions)
		}
		return neo4jvec.NewDriver(ctx, o.Graph, cfg, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(ctx, chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	case ProviderQdrant:
		host, port, err := splitHostPort(o.Target)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:           host,
			Port:           port,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
			Dimensions:     uint64(o.Dimensions),
		}, o.Logger)
	case ProviderSQLiteVec:
		return sqlitevec.NewDriver(ctx, sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

func splitHostPort(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// bare host
		return target, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}
