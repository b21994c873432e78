package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes the circuit breaker placed in front of a CallFunc.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes again
// after thirty seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// WithBreaker wraps call in a gobreaker circuit breaker. Context cancellation
// by the caller is not counted as a provider failure.
func WithBreaker(call CallFunc, cfg BreakerConfig, log *zap.Logger) CallFunc {
	if log == nil {
		log = zap.NewNop()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("llm circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return func(ctx context.Context, prompt string) (string, error) {
		out, err := cb.Execute(func() (interface{}, error) {
			return call(ctx, prompt)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrCircuitOpen
		}
		if err != nil {
			return "", err
		}
		return out.(string), nil
	}
}
