package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/agent"
	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/llm"
	"github.com/papercomputeco/graphchat/pkg/retrieval"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

// ChatResponse is returned by POST /v1/chat.
type ChatResponse struct {
	SessionID         string `json:"session_id"`
	Output            string `json:"output"`
	RephrasedQuestion string `json:"rephrased_question"`
	Tool              string `json:"tool"`
}

// ToolRequest is the body of POST /v1/tools/:name.
type ToolRequest struct {
	SessionID         string `json:"session_id"`
	Input             string `json:"input"`
	RephrasedQuestion string `json:"rephrasedQuestion"`
}

// ToolResponse is returned by POST /v1/tools/:name.
type ToolResponse struct {
	Tool   string `json:"tool"`
	Output string `json:"output"`
}

// HistoryResponse contains a session's recent turns, oldest first.
type HistoryResponse struct {
	SessionID string          `json:"session_id"`
	Turns     []*history.Turn `json:"turns"`
	Count     int             `json:"count"`
}

// SchemaResponse describes the graph.
type SchemaResponse struct {
	Schema string `json:"schema"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat answers a question within a session, starting a new session
// when none is given.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Input == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "input is required"})
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	reply, err := s.agent.Respond(c.UserContext(), req.SessionID, req.Input)
	if err != nil {
		return s.fail(c, err, zap.String("session_id", req.SessionID))
	}

	return c.JSON(ChatResponse{
		SessionID:         req.SessionID,
		Output:            reply.Output,
		RephrasedQuestion: reply.RephrasedQuestion,
		Tool:              string(reply.Tool),
	})
}

// handleTool runs one retrieval tool directly.
func (s *Server) handleTool(c *fiber.Ctx) error {
	name := c.Params("name")

	var req ToolRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Input == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "input is required"})
	}

	out, err := s.agent.RunTool(c.UserContext(), name, req.SessionID, retrieval.Input{
		Input:             req.Input,
		RephrasedQuestion: req.RephrasedQuestion,
	})
	if err != nil {
		return s.fail(c, err, zap.String("tool", name))
	}

	return c.JSON(ToolResponse{Tool: name, Output: out})
}

// handleGetHistory returns the session's recent turns.
// Query parameters:
//   - window (optional): number of hops to walk back from the latest turn
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	window := c.QueryInt("window", s.config.Window)
	if window <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "window must be a positive integer"})
	}

	turns, err := s.agent.History(c.UserContext(), sessionID, window)
	if err != nil {
		return s.fail(c, err, zap.String("session_id", sessionID))
	}
	if turns == nil {
		turns = []*history.Turn{}
	}

	return c.JSON(HistoryResponse{
		SessionID: sessionID,
		Turns:     turns,
		Count:     len(turns),
	})
}

// handleClearHistory deletes the session's turns.
func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if err := s.agent.Clear(c.UserContext(), sessionID); err != nil {
		return s.fail(c, err, zap.String("session_id", sessionID))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleSchema returns the graph schema used in query prompts.
func (s *Server) handleSchema(c *fiber.Ctx) error {
	schema, err := s.schema.Schema(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(SchemaResponse{Schema: schema})
}

// fail logs err and writes it with the status it maps to.
func (s *Server) fail(c *fiber.Ctx, err error, fields ...zap.Field) error {
	status := statusFor(err)
	fields = append(fields, zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Debug("request rejected", fields...)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, history.ErrEmptySession):
		return fiber.StatusBadRequest
	case errors.Is(err, agent.ErrUnknownTool):
		return fiber.StatusNotFound
	case errors.Is(err, llm.ErrCircuitOpen):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, retrieval.ErrRetrieval):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
