package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/graphchat/pkg/history"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnPersisted is emitted after a conversation turn is persisted.
	EventTypeTurnPersisted = "graphchat.turn.persisted"

	// ServiceName identifies this service as the event producer.
	ServiceName = "graphchat"
)

// TurnPersistedEvent is a transport-neutral event payload for a persisted turn.
type TurnPersistedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Timing        TurnTiming   `json:"timing"`
	Turn          history.Turn `json:"turn"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	Service  string         `json:"service"`
	Pipeline history.Source `json:"pipeline"`
}

// TurnTiming captures how long the turn waited before it was persisted.
type TurnTiming struct {
	EnqueuedAt  time.Time `json:"enqueued_at"`
	PersistedAt time.Time `json:"persisted_at"`
	QueuedMs    int64     `json:"queued_ms"`
}

// NewTurnPersistedEvent builds the event for turn, which must already carry
// its persisted id.
func NewTurnPersistedEvent(turn *history.Turn, enqueuedAt, persistedAt time.Time) *TurnPersistedEvent {
	return &TurnPersistedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnPersisted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     persistedAt.UTC(),
		Source: EventSource{
			Service:  ServiceName,
			Pipeline: turn.Source,
		},
		Timing: TurnTiming{
			EnqueuedAt:  enqueuedAt.UTC(),
			PersistedAt: persistedAt.UTC(),
			QueuedMs:    persistedAt.Sub(enqueuedAt).Milliseconds(),
		},
		Turn: *turn,
	}
}
