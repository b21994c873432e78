package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/agent"
	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/retrieval"
)

// Agent is the subset of *agent.Agent the handlers call.
type Agent interface {
	Respond(ctx context.Context, sessionID, input string) (*agent.Reply, error)
	RunTool(ctx context.Context, name, sessionID string, in retrieval.Input) (string, error)
	History(ctx context.Context, sessionID string, window int) ([]*history.Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

// SchemaSource describes the graph schema.
type SchemaSource interface {
	Schema(ctx context.Context) (string, error)
}

// Server is the API server for the graph assistant
type Server struct {
	config Config
	agent  Agent
	schema SchemaSource
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The agent and schema source are injected so the server shares them with
// the MCP tools.
func NewServer(config Config, a Agent, schema SchemaSource, logger *zap.Logger) (*Server, error) {
	if a == nil {
		return nil, errors.New("agent is required")
	}
	if schema == nil {
		return nil, errors.New("schema source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Window <= 0 {
		config.Window = history.DefaultWindow
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		agent:  a,
		schema: schema,
		logger: logger,
		app:    app,
	}

	if config.Metrics != nil {
		app.Use(s.recordRequest)
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/chat", s.handleChat)
	app.Post("/v1/tools/:name", s.handleTool)
	app.Get("/v1/sessions/:id/history", s.handleGetHistory)
	app.Delete("/v1/sessions/:id/history", s.handleClearHistory)
	app.Get("/v1/schema", s.handleSchema)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// recordRequest observes every request on the route it matched.
func (s *Server) recordRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	// Method and route alias fasthttp buffers that are reused by the next
	// request; label values must own their bytes.
	method := utils.CopyString(c.Method())
	route := utils.CopyString(c.Route().Path)
	s.config.Metrics.RecordHTTPRequest(method, route, status, time.Since(start))
	return err
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
