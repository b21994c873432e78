package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/retrieval"
)

var (
	askToolName    = "ask"
	askDescription = "Ask the movie graph assistant a question. Follow-up questions are rephrased using the session's recent history, routed to the best retrieval tool and answered from the database."
)

// ToolName is the MCP tool name of a retrieval pipeline, e.g. "vector_retrieval".
func ToolName(source history.Source) string {
	return string(source) + "_retrieval"
}

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	SessionID string `json:"session_id" jsonschema:"conversation id; reuse it for follow-up questions"`
	Message   string `json:"message" jsonschema:"the user's question"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Output            string `json:"output"`
	RephrasedQuestion string `json:"rephrased_question"`
	Tool              string `json:"tool"`
}

// RetrievalInput represents the input arguments for a retrieval tool.
type RetrievalInput struct {
	Input             string `json:"input" jsonschema:"the user's question as asked"`
	RephrasedQuestion string `json:"rephrasedQuestion,omitempty" jsonschema:"a standalone version of the question; defaults to input"`
	SessionID         string `json:"session_id,omitempty" jsonschema:"conversation id; when set the answer is saved to its history"`
}

// RetrievalOutput represents the output of a retrieval tool.
type RetrievalOutput struct {
	Tool   string `json:"tool"`
	Output string `json:"output"`
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult serializes the structured output as JSON for the text field too.
func jsonResult(output any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, nil
}

// handleAsk processes an ask request.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	if input.SessionID == "" || input.Message == "" {
		return errorResult("session_id and message are required"), AskOutput{}, nil
	}

	reply, err := s.config.Agent.Respond(ctx, input.SessionID, input.Message)
	if err != nil {
		logger.Error("MCP ask failed",
			zap.String("session_id", input.SessionID),
			zap.Error(err),
		)
		return errorResult("Failed to answer: %v", err), AskOutput{}, nil
	}

	output := AskOutput{
		Output:            reply.Output,
		RephrasedQuestion: reply.RephrasedQuestion,
		Tool:              string(reply.Tool),
	}
	result, err := jsonResult(output)
	if err != nil {
		return errorResult("Failed to serialize results: %v", err), AskOutput{}, nil
	}
	return result, output, nil
}

// retrievalHandler runs the named tool directly, without rephrasing or
// routing.
func (s *Server) retrievalHandler(name string) mcp.ToolHandlerFor[RetrievalInput, RetrievalOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RetrievalInput) (*mcp.CallToolResult, RetrievalOutput, error) {
		logger := s.config.Logger

		if input.Input == "" {
			return errorResult("input is required"), RetrievalOutput{}, nil
		}

		logger.Debug("MCP retrieval request",
			zap.String("tool", name),
			zap.String("input", input.Input),
			zap.Bool("recorded", input.SessionID != ""),
		)

		out, err := s.config.Agent.RunTool(ctx, name, input.SessionID, retrieval.Input{
			Input:             input.Input,
			RephrasedQuestion: input.RephrasedQuestion,
		})
		if err != nil {
			logger.Error("MCP retrieval failed", zap.String("tool", name), zap.Error(err))
			return errorResult("Retrieval failed: %v", err), RetrievalOutput{}, nil
		}

		output := RetrievalOutput{Tool: name, Output: out}
		result, err := jsonResult(output)
		if err != nil {
			return errorResult("Failed to serialize results: %v", err), RetrievalOutput{}, nil
		}
		return result, output, nil
	}
}
