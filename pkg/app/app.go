// Package app assembles a graphchat agent and its supporting services from
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/agent"
	"github.com/papercomputeco/graphchat/pkg/answer"
	"github.com/papercomputeco/graphchat/pkg/config"
	"github.com/papercomputeco/graphchat/pkg/cypher"
	"github.com/papercomputeco/graphchat/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/graphchat/pkg/embeddings/utils"
	"github.com/papercomputeco/graphchat/pkg/eventstream"
	"github.com/papercomputeco/graphchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/graphchat/pkg/eventstream/nop"
	"github.com/papercomputeco/graphchat/pkg/graph"
	neo4jgraph "github.com/papercomputeco/graphchat/pkg/graph/neo4j"
	"github.com/papercomputeco/graphchat/pkg/history"
	historyutils "github.com/papercomputeco/graphchat/pkg/history/utils"
	"github.com/papercomputeco/graphchat/pkg/llm"
	"github.com/papercomputeco/graphchat/pkg/metrics"
	"github.com/papercomputeco/graphchat/pkg/rephrase"
	"github.com/papercomputeco/graphchat/pkg/retrieval"
	"github.com/papercomputeco/graphchat/pkg/vector"
	vectorutils "github.com/papercomputeco/graphchat/pkg/vector/utils"
	"github.com/papercomputeco/graphchat/pkg/worker"
)

// Components are the external services an App is assembled from.
type Components struct {
	Graph graph.Graph

	// Call answers free-text prompts; JSONCall answers prompts that expect a
	// JSON object. JSONCall defaults to Call.
	Call     llm.CallFunc
	JSONCall llm.CallFunc

	Embedder  embeddings.Embedder
	Vector    vector.Driver
	History   history.Driver
	Publisher eventstream.Publisher
}

// KeySource resolves provider API keys.
type KeySource interface {
	APIKey(provider string) (string, error)
}

// App is a running agent with everything it needs.
type App struct {
	Agent   *agent.Agent
	Graph   graph.Graph
	Metrics *metrics.Collector

	components Components
	pool       *worker.Pool
	logger     *zap.Logger
}

// New connects every service named in cfg and assembles the agent. keys may
// be nil, in which case providers read their environment variables.
func New(ctx context.Context, cfg *config.Config, keys KeySource, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	llmKey, err := apiKey(keys, cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	embeddingKey, err := apiKey(keys, cfg.Embedding.Provider)
	if err != nil {
		return nil, err
	}

	var c Components
	closeAll := func() {
		_ = closeComponents(c, logger)
	}

	g, err := neo4jgraph.NewGraph(ctx, neo4jgraph.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}
	c.Graph = g

	c.Call, c.JSONCall, err = newCallers(cfg.LLM, llmKey, logger)
	if err != nil {
		closeAll()
		return nil, err
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       embeddingKey,
		Dimensions:   requestedDimensions(cfg.Embedding),
		Logger:       logger,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	c.Embedder = embedder

	store, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Graph:        g,
		Logger:       logger,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	c.Vector = store

	turns, err := historyutils.NewDriver(ctx, &historyutils.NewDriverOpts{
		ProviderType: cfg.History.Provider,
		Target:       cfg.History.Target,
		Neo4j:        g.Driver(),
		Database:     g.Database(),
		Logger:       logger,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("creating history: %w", err)
	}
	c.History = turns

	publisher, err := newPublisher(cfg.EventStream, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	c.Publisher = publisher

	a, err := Assemble(cfg, c, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	return a, nil
}

// Assemble wires the agent over already-connected components.
func Assemble(cfg *config.Config, c Components, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.Graph == nil || c.Call == nil || c.Embedder == nil || c.Vector == nil || c.History == nil {
		return nil, errors.New("app needs a graph, a model, an embedder, a vector store and history")
	}
	if c.JSONCall == nil {
		c.JSONCall = c.Call
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}

	roundTimeout, err := cfg.Synthesis.Timeout()
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector("")

	pool, err := worker.NewPool(&worker.Config{
		History:   c.History,
		Publisher: c.Publisher,
		Observer:  collector,
		Logger:    logger.Named("history"),
	})
	if err != nil {
		return nil, fmt.Errorf("starting history workers: %w", err)
	}

	validator := cypher.NewLLMValidator(c.JSONCall, "")
	synthesizer := cypher.NewSynthesizer(cypher.SynthesizerConfig{
		Generator:    cypher.NewLLMGenerator(c.Call, ""),
		Validator:    validator,
		MaxRounds:    cfg.Synthesis.MaxRounds,
		RoundTimeout: roundTimeout,
		Observer:     collector,
	}, logger.Named("synthesis"))
	executor := cypher.NewExecutor(cypher.ExecutorConfig{
		Graph:        c.Graph,
		Validator:    validator,
		MaxAttempts:  cfg.Synthesis.MaxAttempts,
		RoundTimeout: roundTimeout,
		Observer:     collector,
	}, logger.Named("executor"))

	vectorTool, err := retrieval.NewTool(retrieval.ToolConfig{
		Pipeline: retrieval.NewVectorPipeline(retrieval.VectorConfig{
			Embedder: c.Embedder,
			Store:    c.Vector,
			TopK:     cfg.VectorStore.TopK,
		}, logger.Named("vector")),
		Composer: answer.New(c.Call, answer.Prompt, logger),
		Recorder: pool,
		Observer: collector,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	cypherTool, err := retrieval.NewTool(retrieval.ToolConfig{
		Pipeline: retrieval.NewCypherPipeline(retrieval.CypherConfig{
			Graph:       c.Graph,
			Synthesizer: synthesizer,
			Executor:    executor,
		}, logger.Named("cypher")),
		Composer: answer.New(c.Call, answer.AuthoritativePrompt, logger),
		Recorder: pool,
		Observer: collector,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	router, err := retrieval.NewLLMRouter(c.Call, []retrieval.Pipeline{
		vectorTool.Pipeline(),
		cypherTool.Pipeline(),
	}, logger.Named("router"))
	if err != nil {
		pool.Close()
		return nil, err
	}

	a, err := agent.New(agent.Config{
		History:   c.History,
		Rephraser: rephrase.New(c.Call, logger),
		Router:    router,
		Tools:     []*retrieval.Tool{vectorTool, cypherTool},
		Window:    cfg.History.Window,
		Observer:  collector,
	}, logger.Named("agent"))
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		Agent:      a,
		Graph:      c.Graph,
		Metrics:    collector,
		components: c,
		pool:       pool,
		logger:     logger,
	}, nil
}

// Close drains pending history writes, then releases every component.
func (a *App) Close() error {
	a.pool.Close()
	return closeComponents(a.components, a.logger)
}

// closeComponents closes in reverse dependency order; the graph goes last
// because neo4j history and vectors share its driver.
func closeComponents(c Components, logger *zap.Logger) error {
	type closer interface{ Close() error }

	var errs []error
	for _, item := range []struct {
		name string
		c    closer
	}{
		{"publisher", c.Publisher},
		{"history", c.History},
		{"vector store", c.Vector},
		{"embedder", c.Embedder},
		{"graph", c.Graph},
	} {
		if item.c == nil {
			continue
		}
		if err := item.c.Close(); err != nil {
			logger.Warn("close failed", zap.String("component", item.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("closing %s: %w", item.name, err))
		}
	}
	return errors.Join(errs...)
}

func apiKey(keys KeySource, provider string) (string, error) {
	if keys == nil {
		return "", nil
	}
	key, err := keys.APIKey(provider)
	if err != nil {
		return "", fmt.Errorf("reading %s credentials: %w", provider, err)
	}
	return key, nil
}

func newCallers(c config.LLMConfig, key string, logger *zap.Logger) (llm.CallFunc, llm.CallFunc, error) {
	base := llm.CallerConfig{
		Provider: c.Provider,
		Model:    c.Model,
		BaseURL:  c.BaseURL,
		APIKey:   key,
		Logger:   logger,
	}
	call, err := llm.NewCaller(base)
	if err != nil {
		return nil, nil, fmt.Errorf("creating llm caller: %w", err)
	}

	base.JSON = true
	jsonCall, err := llm.NewCaller(base)
	if err != nil {
		return nil, nil, fmt.Errorf("creating llm caller: %w", err)
	}

	return llm.WithBreaker(call, llm.DefaultBreakerConfig("llm"), logger),
		llm.WithBreaker(jsonCall, llm.DefaultBreakerConfig("llm-json"), logger),
		nil
}

// requestedDimensions only asks for shortened vectors from models that
// support it.
func requestedDimensions(c config.EmbeddingConfig) int {
	if c.Provider == embeddingutils.ProviderOpenAI || c.Provider == "" {
		if strings.HasPrefix(c.Model, "text-embedding-3") {
			return int(c.Dimensions)
		}
	}
	return 0
}

func newPublisher(c config.EventStreamConfig, logger *zap.Logger) (eventstream.Publisher, error) {
	switch strings.ToLower(c.Provider) {
	case "", "none", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers:      c.BrokerList(),
			Topic:        c.Topic,
			WriteTimeout: 10 * time.Second,
		}, logger.Named("kafka"))
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", c.Provider)
	}
}
