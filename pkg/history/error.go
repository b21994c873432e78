package history

import (
	"errors"
	"strings"
)

var (
	// ErrEmptySession is returned when a session id is blank.
	ErrEmptySession = errors.New("session id is required")

	// ErrNilTurn is returned when Append is called without a turn.
	ErrNilTurn = errors.New("cannot append nil turn")

	// ErrConflict is returned when an append lost every compare-and-swap race
	// on the session tail.
	ErrConflict = errors.New("concurrent append conflict")
)

// Validate checks the arguments common to every Append.
func Validate(sessionID string, turn *Turn) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrEmptySession
	}
	if turn == nil {
		return ErrNilTurn
	}
	return nil
}

// Window normalises a requested window, substituting DefaultWindow for
// non-positive values.
func Window(window int) int {
	if window <= 0 {
		return DefaultWindow
	}
	return window
}
