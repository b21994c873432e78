// Package worker provides an asynchronous worker pool that persists
// conversation turns to a history.Driver and announces them on an event
// stream.
//
// The pool keeps history writes off the answer path: a turn is enqueued and
// the answer is returned without waiting for the save. Every session is
// pinned to one worker, so a session's turns are appended in the order they
// were enqueued.
package worker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/eventstream"
	"github.com/papercomputeco/graphchat/pkg/history"
)

var (
	defaultNumWorkers    uint = 3
	defaultJobQueueSize  uint = 256
	defaultAppendTimeout      = 30 * time.Second
)

// ErrPoolClosed is returned by Enqueue after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	SessionID string
	Turn      *history.Turn

	// EnqueuedAt is set by Enqueue.
	EnqueuedAt time.Time
}

// Observer is notified of persistence outcomes.
type Observer interface {
	TurnPersisted(source history.Source)
	HistoryAppendFailed(source history.Source)
}

type nopObserver struct{}

func (nopObserver) TurnPersisted(history.Source)       {}
func (nopObserver) HistoryAppendFailed(history.Source) {}

// Config is the configuration options for the worker pool.
type Config struct {
	// History is the backend turns are appended to.
	History history.Driver

	// Publisher optionally announces persisted turns.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of each worker's job channel (defaults to 256).
	QueueSize uint

	// AppendTimeout bounds each history write (defaults to 30s).
	AppendTimeout time.Duration

	Observer Observer

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool persists turns asynchronously via a worker pool.
type Pool struct {
	config *Config
	queues []chan Job
	wg     sync.WaitGroup
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.History == nil {
		return nil, errors.New("history driver is required")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.AppendTimeout <= 0 {
		c.AppendTimeout = defaultAppendTimeout
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queues: make([]chan Job, c.NumWorkers),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		wp.queues[i] = make(chan Job, c.QueueSize)
		go wp.worker(i, wp.queues[i])
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool. It never blocks:
// when the queue is full the job is dropped and logged.
func (p *Pool) Enqueue(job Job) error {
	if job.Turn == nil {
		return history.ErrNilTurn
	}
	job.EnqueuedAt = time.Now()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queueFor(job.SessionID) <- job:
		p.logger.Debug("job queued",
			zap.String("session_id", job.SessionID),
			zap.String("source", string(job.Turn.Source)),
		)
		return nil
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("session_id", job.SessionID),
			zap.String("source", string(job.Turn.Source)),
		)
		p.config.Observer.HistoryAppendFailed(job.Turn.Source)
		return fmt.Errorf("queue full, dropped turn for session %s", job.SessionID)
	}
}

// Close stops accepting jobs and waits for in-flight jobs to drain. It is
// safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// queueFor returns the queue of the worker that owns sessionID.
func (p *Pool) queueFor(sessionID string) chan<- Job {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return p.queues[h.Sum32()%uint32(len(p.queues))]
}

// worker is the inner worker thread that continuously pulls jobs off its queue
func (p *Pool) worker(id uint, queue <-chan Job) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range queue {
		p.processJob(job)
	}

	p.logger.Debug("history worker stopped", zap.Uint("worker_id", id))
}

// processJob appends the turn and publishes the persisted event. Failures
// are logged and never surface to the caller that enqueued the job.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.AppendTimeout)
	defer cancel()

	id, err := p.config.History.Append(ctx, job.SessionID, job.Turn)
	if err != nil {
		p.logger.Error("async history append failed",
			zap.String("session_id", job.SessionID),
			zap.String("source", string(job.Turn.Source)),
			zap.Error(err),
		)
		p.config.Observer.HistoryAppendFailed(job.Turn.Source)
		return
	}
	p.config.Observer.TurnPersisted(job.Turn.Source)

	p.logger.Info("turn stored",
		zap.String("session_id", job.SessionID),
		zap.String("turn_id", id),
		zap.String("source", string(job.Turn.Source)),
	)

	if p.config.Publisher == nil {
		return
	}

	persisted := *job.Turn
	persisted.ID = id
	persisted.SessionID = job.SessionID
	if persisted.CreatedAt.IsZero() {
		persisted.CreatedAt = time.Now().UTC()
	}

	event := eventstream.NewTurnPersistedEvent(&persisted, job.EnqueuedAt, time.Now())
	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		p.logger.Warn("failed to publish turn event",
			zap.String("turn_id", id),
			zap.Error(err),
		)
	}
}
