package eventstream

import (
	"context"
	"errors"
)

var (
	// ErrNilTurnEvent indicates a nil turn event payload was provided to a publisher.
	ErrNilTurnEvent = errors.New("nil turn event")

	// ErrUnkeyedTurnEvent is returned for events whose turn has no session,
	// since backends partition by session id.
	ErrUnkeyedTurnEvent = errors.New("turn event without session id")
)

// Publisher publishes persisted-turn events to an event stream backend.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnPersistedEvent) error
	Close() error
}

// Validate reports whether event can be handed to a backend.
func Validate(event *TurnPersistedEvent) error {
	if event == nil {
		return ErrNilTurnEvent
	}
	if event.Turn.SessionID == "" {
		return ErrUnkeyedTurnEvent
	}
	return nil
}
