// Package resilience wraps outbound calls that can fail repeatedly —
// listener binds, telemetry broker publishes — in a circuit breaker so
// a stuck dependency backs off instead of spinning.
package resilience

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Breaker is a thin wrapper around gobreaker.CircuitBreaker. Breakers
// built with NewNamedBreaker log their state changes; those built with
// NewBreaker do not.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker that opens after consecutiveFailures in a
// row and stays open for timeout before allowing a half-open probe.
func NewBreaker(consecutiveFailures uint32, timeout time.Duration) *Breaker {
	settings := gobreaker.Settings{
		Name:    "plcsim",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// NewNamedBreaker is like NewBreaker but logs state transitions with the
// given name and logger, for per-entity breakers (one per telemetry
// publisher, for example).
func NewNamedBreaker(name string, consecutiveFailures uint32, timeout time.Duration, logger *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Call executes fn through the breaker.
func (b *Breaker) Call(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
