package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/llm"
)

// RouterPrompt takes {tools} and {question}.
const RouterPrompt = `
You are routing a question about movies to the tool best able to answer it.

Tools:
{tools}

Question:
{question}

Respond with the name of exactly one tool and nothing else.
`

// Router picks the pipeline that should answer a question.
type Router interface {
	Route(ctx context.Context, in Input) Pipeline
}

// StaticRouter always picks the same pipeline.
type StaticRouter struct {
	Pipeline Pipeline
}

func (r StaticRouter) Route(context.Context, Input) Pipeline {
	return r.Pipeline
}

// LLMRouter asks a model to name one of its pipelines.
type LLMRouter struct {
	call      llm.CallFunc
	pipelines []Pipeline
	fallback  Pipeline
	logger    *zap.Logger
}

// NewLLMRouter routes between pipelines; unknown replies and model errors
// fall back to the first pipeline.
func NewLLMRouter(call llm.CallFunc, pipelines []Pipeline, logger *zap.Logger) (*LLMRouter, error) {
	if len(pipelines) == 0 {
		return nil, fmt.Errorf("router needs at least one pipeline")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMRouter{
		call:      call,
		pipelines: pipelines,
		fallback:  pipelines[0],
		logger:    logger,
	}, nil
}

// Route implements Router.
func (r *LLMRouter) Route(ctx context.Context, in Input) Pipeline {
	if len(r.pipelines) == 1 {
		return r.fallback
	}

	tools := make([]string, len(r.pipelines))
	for i, p := range r.pipelines {
		tools[i] = fmt.Sprintf("- %s: %s", p.Name(), p.Description())
	}

	reply, err := r.call(ctx, llm.Render(RouterPrompt, map[string]string{
		"tools":    strings.Join(tools, "\n"),
		"question": in.Question(),
	}))
	if err != nil {
		r.logger.Warn("routing failed, using default pipeline",
			zap.String("pipeline", string(r.fallback.Name())),
			zap.Error(err),
		)
		return r.fallback
	}

	if p := r.match(reply); p != nil {
		return p
	}
	r.logger.Warn("router named no known pipeline, using default",
		zap.String("reply", reply),
		zap.String("pipeline", string(r.fallback.Name())),
	)
	return r.fallback
}

// match prefers an exact name and otherwise accepts a reply mentioning
// exactly one pipeline.
func (r *LLMRouter) match(reply string) Pipeline {
	norm := strings.ToLower(strings.Trim(strings.TrimSpace(reply), "`'\".:"))

	var mentioned []Pipeline
	for _, p := range r.pipelines {
		name := strings.ToLower(string(p.Name()))
		if norm == name {
			return p
		}
		if strings.Contains(norm, name) {
			mentioned = append(mentioned, p)
		}
	}
	if len(mentioned) == 1 {
		return mentioned[0]
	}
	return nil
}
