// Package api provides the HTTP API server for chatting with the graph
// assistant and inspecting conversation history.
package api

import (
	"net/http"

	"github.com/papercomputeco/graphchat/pkg/metrics"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Window is the default history window for GET /v1/sessions/:id/history
	Window int

	// Metrics is optional; when set requests are counted and /metrics is served
	Metrics *metrics.Collector

	// MCPHandler is optional; when set it is mounted on /mcp
	MCPHandler http.Handler
}
