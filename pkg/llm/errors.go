package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCircuitOpen is returned by a breaker-wrapped CallFunc while the breaker
// refuses calls.
var ErrCircuitOpen = errors.New("llm circuit breaker open")

// StatusError is a non-200 response from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
