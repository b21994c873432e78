// Package servecmder provides the serve command, which runs the graphchat
// API server with the MCP endpoint mounted.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/api"
	"github.com/papercomputeco/graphchat/api/mcp"
	"github.com/papercomputeco/graphchat/pkg/app"
	"github.com/papercomputeco/graphchat/pkg/config"
	"github.com/papercomputeco/graphchat/pkg/credentials"
	"github.com/papercomputeco/graphchat/pkg/logger"
)

type serveCommander struct {
	flags     serveFlags
	cfg       *config.Config
	configDir string
	debug     bool

	logger *zap.Logger
}

// serveFlags are flag targets; values are read back through viper.
type serveFlags struct {
	listen, graphURI, graphUsername, graphDatabase string
	provider, model, llmBaseURL                    string
	embeddingProvider, embeddingTarget, embedModel string
	vectorProvider, vectorTarget, vectorColl       string
	historyProvider, historyTarget                 string
	eventProvider, eventBrokers, eventTopic        string
	embeddingDims                                  uint
}

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagGraphURI,
	config.FlagGraphUsername,
	config.FlagGraphDatabase,
	config.FlagLLMProvider,
	config.FlagLLMModel,
	config.FlagLLMBaseURL,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStoreColl,
	config.FlagHistoryProv,
	config.FlagHistoryTgt,
	config.FlagEventProvider,
	config.FlagEventBrokers,
	config.FlagEventTopic,
}

const serveLongDesc string = `Run the graphchat API server.

The server connects to Neo4j, the configured LLM and embedding providers,
the vector store and the history backend, then serves:
  POST /v1/chat                    Ask a question within a session
  POST /v1/tools/:name             Run a retrieval tool directly
  GET  /v1/sessions/:id/history    Read a session's recent turns
  GET  /v1/schema                  Describe the graph
  GET  /metrics                    Prometheus metrics
  /mcp                             MCP streamable HTTP endpoint

Settings come from flags, GRAPHCHAT_* environment variables (NEO4J_URI,
NEO4J_USERNAME, NEO4J_PASSWORD and NEO4J_DATABASE are honoured too),
config.toml and built-in defaults, in that order. Provider API keys come from
OPENAI_API_KEY / ANTHROPIC_API_KEY or from keys stored with "graphchat auth".

Examples:
  graphchat serve
  graphchat serve --provider ollama --model llama3.2 --embedding-provider ollama
  graphchat serve --vector-store-provider qdrant --vector-store-target localhost:6334`

const serveShortDesc string = "Run the graphchat API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlagKeys)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagGraphURI, &f.graphURI)
	config.AddStringFlag(cmd, config.Flags, config.FlagGraphUsername, &f.graphUsername)
	config.AddStringFlag(cmd, config.Flags, config.FlagGraphDatabase, &f.graphDatabase)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProvider, &f.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &f.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMBaseURL, &f.llmBaseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &f.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &f.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &f.embedModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &f.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &f.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &f.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreColl, &f.vectorColl)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryProv, &f.historyProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryTgt, &f.historyTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, &f.eventProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventBrokers, &f.eventBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventTopic, &f.eventTopic)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.Info("connecting services",
		zap.String("graph", c.cfg.Graph.URI),
		zap.String("llm_provider", c.cfg.LLM.Provider),
		zap.String("llm_model", c.cfg.LLM.Model),
		zap.String("vector_store", c.cfg.VectorStore.Provider),
		zap.String("history", c.cfg.History.Provider),
	)

	keys, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	a, err := app.New(ctx, c.cfg, keys, c.logger)
	if err != nil {
		return fmt.Errorf("starting graphchat: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.logger.Error("closing services", zap.Error(err))
		}
	}()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Agent:  a.Agent,
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddr: c.cfg.API.Listen,
		Window:     c.cfg.History.Window,
		Metrics:    a.Metrics,
		MCPHandler: mcpServer.Handler(),
	}, a.Agent, a.Graph, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	done := make(chan error, 1)
	go func() { done <- apiServer.Shutdown() }()

	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		return errors.New("timed out shutting down API server")
	}
}
