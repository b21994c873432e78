package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/graphchat/pkg/eventstream"
)

// RecordingPublisher collects published turn events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnPersistedEvent

	// Err fails every publish when set.
	Err error
}

func (r *RecordingPublisher) PublishTurn(_ context.Context, event *eventstream.TurnPersistedEvent) error {
	if err := eventstream.Validate(event); err != nil {
		return err
	}
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a snapshot of the published events.
func (r *RecordingPublisher) Events() []*eventstream.TurnPersistedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventstream.TurnPersistedEvent(nil), r.events...)
}

func (r *RecordingPublisher) Close() error {
	return nil
}
