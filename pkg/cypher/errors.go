package cypher

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/papercomputeco/graphchat/pkg/llm"
)

var (
	// ErrNoCandidate is returned when the drafting step produced no query text.
	ErrNoCandidate = errors.New("no candidate query generated")

	// ErrMalformedValidation is returned when validator output cannot be parsed.
	ErrMalformedValidation = errors.New("malformed validator output")
)

// ErrorKind classifies a failed synthesis round.
type ErrorKind int

const (
	// KindRetryable rounds are skipped and the loop continues.
	KindRetryable ErrorKind = iota
	// KindFatal rounds stop the loop.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	default:
		return "retryable"
	}
}

// RoundError wraps the error of a single generate or validate call.
type RoundError struct {
	Kind  ErrorKind
	Round int
	Err   error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("round %d (%s): %v", e.Round, e.Kind, e.Err)
}

func (e *RoundError) Unwrap() error {
	return e.Err
}

// Classify decides whether a failed round may be retried. Only cancellation of
// the parent context is fatal; round timeouts, breaker rejections, transport
// and provider errors and malformed output are all retryable.
func Classify(parent context.Context, round int, err error) *RoundError {
	kind := KindRetryable
	if parent.Err() != nil {
		kind = KindFatal
	}
	return &RoundError{Kind: kind, Round: round, Err: err}
}

// IsTransient reports whether err looks like a temporary provider failure.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, llm.ErrCircuitOpen) {
		return true
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
