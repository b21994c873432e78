// Package history provides conversational memory: an append-only chain of
// turns per session with a tail pointer to the most recent turn.
package history

import (
	"context"
	"time"
)

// DefaultWindow is the number of hops Read walks back from the tail.
const DefaultWindow = 5

// Source names the retrieval pipeline that produced a turn.
type Source string

const (
	SourceVector Source = "vector"
	SourceCypher Source = "cypher"
)

// Turn is one persisted question and answer exchange. Turns are immutable
// once appended.
type Turn struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"session_id"`
	CreatedAt         time.Time `json:"created_at"`
	Source            Source    `json:"source"`
	Input             string    `json:"input"`
	RephrasedQuestion string    `json:"rephrased_question"`
	Output            string    `json:"output"`

	// Query is the Cypher that produced the context, empty when absent.
	Query string `json:"query,omitempty"`

	// SourceIDs are the provenance ids the answer was grounded on.
	SourceIDs []string `json:"source_ids"`
}

// Driver persists and replays conversation history.
type Driver interface {
	// Append adds turn to the end of the session's chain, creating the session
	// on first use, and returns the new turn's id. Appends to the same
	// session are serialised.
	Append(ctx context.Context, sessionID string, turn *Turn) (string, error)

	// Read walks back from the tail up to window hops and returns at most
	// window+1 turns, oldest first. An unknown session yields no turns.
	Read(ctx context.Context, sessionID string, window int) ([]*Turn, error)

	// Clear deletes every turn of the session. The session itself remains.
	Clear(ctx context.Context, sessionID string) error

	// Close releases any resources held by the driver.
	Close() error
}
