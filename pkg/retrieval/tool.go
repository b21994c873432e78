package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/worker"
)

// Composer answers a question from retrieved context.
type Composer interface {
	Compose(ctx context.Context, question, retrieved string) (string, error)
}

// Recorder accepts turns for asynchronous persistence.
type Recorder interface {
	Enqueue(job worker.Job) error
}

// Observer is notified when a tool finishes.
type Observer interface {
	PipelineFinished(source history.Source, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) PipelineFinished(history.Source, time.Duration, error) {}

// ToolConfig configures a Tool.
type ToolConfig struct {
	Pipeline Pipeline
	Composer Composer

	// Recorder is optional; without it turns are not saved.
	Recorder Recorder

	Observer Observer
}

// Tool is a pipeline with the shared tail: compose the answer, hand the turn
// to the recorder without waiting, and return the answer text.
type Tool struct {
	pipeline Pipeline
	composer Composer
	recorder Recorder
	observer Observer
	logger   *zap.Logger
}

func NewTool(c ToolConfig, logger *zap.Logger) (*Tool, error) {
	if c.Pipeline == nil || c.Composer == nil {
		return nil, errors.New("tool needs a pipeline and a composer")
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tool{
		pipeline: c.Pipeline,
		composer: c.Composer,
		recorder: c.Recorder,
		observer: c.Observer,
		logger:   logger,
	}, nil
}

// Name is the pipeline's name.
func (t *Tool) Name() history.Source { return t.pipeline.Name() }

// Description is the pipeline's routing description.
func (t *Tool) Description() string { return t.pipeline.Description() }

// Pipeline returns the underlying pipeline.
func (t *Tool) Pipeline() Pipeline { return t.pipeline }

// Run answers in. An empty sessionID skips saving the turn. Save failures are
// logged and never affect the returned answer.
func (t *Tool) Run(ctx context.Context, sessionID string, in Input) (string, error) {
	start := time.Now()
	output, err := t.run(ctx, sessionID, in)
	t.observer.PipelineFinished(t.Name(), time.Since(start), err)
	return output, err
}

func (t *Tool) run(ctx context.Context, sessionID string, in Input) (string, error) {
	r, err := t.pipeline.Retrieve(ctx, in)
	if err != nil {
		return "", err
	}

	output, err := t.composer.Compose(ctx, in.Question(), r.Context)
	if err != nil {
		return "", fmt.Errorf("%s tool: %w", t.Name(), err)
	}

	if sessionID != "" && t.recorder != nil {
		err := t.recorder.Enqueue(worker.Job{
			SessionID: sessionID,
			Turn: &history.Turn{
				SessionID:         sessionID,
				Source:            r.Source,
				Input:             in.Input,
				RephrasedQuestion: in.RephrasedQuestion,
				Output:            output,
				Query:             r.Query,
				SourceIDs:         r.SourceIDs,
			},
		})
		if err != nil {
			t.logger.Warn("turn not recorded",
				zap.String("session_id", sessionID),
				zap.String("pipeline", string(t.Name())),
				zap.Error(err),
			)
		}
	}

	return output, nil
}
