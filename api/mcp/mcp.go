// Package mcp provides an MCP (Model Context Protocol) server exposing the
// graphchat retrieval tools and the conversational agent.
package mcp

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/agent"
	"github.com/papercomputeco/graphchat/pkg/retrieval"
	"github.com/papercomputeco/graphchat/pkg/utils"
)

// Agent is the subset of *agent.Agent the MCP tools call.
type Agent interface {
	Respond(ctx context.Context, sessionID, input string) (*agent.Reply, error)
	RunTool(ctx context.Context, name, sessionID string, in retrieval.Input) (string, error)
	Tools() []*retrieval.Tool
}

type Config struct {
	// Agent answers questions and runs retrieval tools
	Agent Agent

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with one tool per retrieval pipeline
// plus the ask tool.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "graphchat",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Agent == nil {
			return nil, errors.New("agent is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        askToolName,
			Description: askDescription,
		}, s.handleAsk)

		for _, t := range c.Agent.Tools() {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        ToolName(t.Name()),
				Description: t.Description(),
			}, s.retrievalHandler(string(t.Name())))
		}
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
