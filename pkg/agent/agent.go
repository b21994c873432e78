// Package agent answers questions in a conversation: it replays recent
// history, rephrases the question, routes it to a retrieval tool and returns
// the answer.
package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/retrieval"
)

// ErrUnknownTool is returned when a tool name is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Rephraser produces a standalone question from input and history.
type Rephraser interface {
	Rephrase(ctx context.Context, input string, turns []*history.Turn) (string, error)
}

// Observer is notified of routing decisions.
type Observer interface {
	PipelineSelected(source history.Source)
}

type nopObserver struct{}

func (nopObserver) PipelineSelected(history.Source) {}

// Config configures an Agent.
type Config struct {
	History   history.Driver
	Rephraser Rephraser
	Router    retrieval.Router

	// Tools must include one tool per pipeline the router can return.
	Tools []*retrieval.Tool

	// Window is the history window replayed for rephrasing.
	Window int

	Observer Observer
}

// Reply is the detailed result of a question.
type Reply struct {
	Output            string
	RephrasedQuestion string
	Tool              history.Source
}

// Agent is the conversational entry point.
type Agent struct {
	history   history.Driver
	rephraser Rephraser
	router    retrieval.Router
	tools     map[history.Source]*retrieval.Tool
	order     []*retrieval.Tool
	window    int
	observer  Observer
	logger    *zap.Logger
}

func New(c Config, logger *zap.Logger) (*Agent, error) {
	if c.History == nil || c.Rephraser == nil || c.Router == nil {
		return nil, errors.New("agent needs history, a rephraser and a router")
	}
	if len(c.Tools) == 0 {
		return nil, errors.New("agent needs at least one tool")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}

	tools := make(map[history.Source]*retrieval.Tool, len(c.Tools))
	for _, t := range c.Tools {
		if _, dup := tools[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name())
		}
		tools[t.Name()] = t
	}

	return &Agent{
		history:   c.History,
		rephraser: c.Rephraser,
		router:    c.Router,
		tools:     tools,
		order:     c.Tools,
		window:    history.Window(c.Window),
		observer:  c.Observer,
		logger:    logger,
	}, nil
}

// Ask answers input within the session and returns the answer text.
func (a *Agent) Ask(ctx context.Context, sessionID, input string) (string, error) {
	reply, err := a.Respond(ctx, sessionID, input)
	if err != nil {
		return "", err
	}
	return reply.Output, nil
}

// Respond is Ask with the routing details exposed.
func (a *Agent) Respond(ctx context.Context, sessionID, input string) (*Reply, error) {
	if sessionID == "" {
		return nil, history.ErrEmptySession
	}

	turns, err := a.history.Read(ctx, sessionID, a.window)
	if err != nil {
		a.logger.Warn("history unavailable, rephrasing without it",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		turns = nil
	}

	rephrased, err := a.rephraser.Rephrase(ctx, input, turns)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("rephrase failed, using the input as is",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		rephrased = input
	}

	in := retrieval.Input{Input: input, RephrasedQuestion: rephrased}
	pipeline := a.router.Route(ctx, in)
	tool, ok := a.tools[pipeline.Name()]
	if !ok {
		tool = a.order[0]
		a.logger.Warn("router picked a pipeline without a tool, using default",
			zap.String("pipeline", string(pipeline.Name())),
			zap.String("default", string(tool.Name())),
		)
	}
	a.observer.PipelineSelected(tool.Name())

	a.logger.Debug("routed question",
		zap.String("session_id", sessionID),
		zap.String("rephrased", rephrased),
		zap.String("tool", string(tool.Name())),
		zap.Int("history", len(turns)),
	)

	output, err := tool.Run(ctx, sessionID, in)
	if err != nil {
		return nil, fmt.Errorf("answering with %s: %w", tool.Name(), err)
	}
	return &Reply{Output: output, RephrasedQuestion: rephrased, Tool: tool.Name()}, nil
}

// RunTool runs a named tool directly, bypassing rephrasing and routing.
func (a *Agent) RunTool(ctx context.Context, name, sessionID string, in retrieval.Input) (string, error) {
	tool, ok := a.tools[history.Source(name)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool.Run(ctx, sessionID, in)
}

// Tools returns the registered tools in registration order.
func (a *Agent) Tools() []*retrieval.Tool {
	return append([]*retrieval.Tool(nil), a.order...)
}

// History reads the session's recent turns, oldest first.
func (a *Agent) History(ctx context.Context, sessionID string, window int) ([]*history.Turn, error) {
	return a.history.Read(ctx, sessionID, window)
}

// Clear deletes the session's turns.
func (a *Agent) Clear(ctx context.Context, sessionID string) error {
	return a.history.Clear(ctx, sessionID)
}
