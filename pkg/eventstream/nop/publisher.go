// Package nop drops turn events. It backs the "none" eventstream provider.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/graphchat/pkg/eventstream"
)

// Publisher validates and discards turn events.
type Publisher struct {
	dropped atomic.Int64
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTurn validates event and drops it.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnPersistedEvent) error {
	if err := eventstream.Validate(event); err != nil {
		return err
	}
	p.dropped.Add(1)
	return nil
}

// Dropped is the number of valid events discarded so far.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	return nil
}
