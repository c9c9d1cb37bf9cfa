package memattr

import (
	"time"

	"github.com/sony/gobreaker"
)

// BreakerListener decorates a Listener so that a chronically failing
// notify_populate (its backing I/O-mapping/DMA subsystem is down) fails
// fast instead of being retried into every single-page notification of a
// large mixed-range state change. Once the breaker is open, NotifyPopulate
// returns an error immediately, which the rollback path already handles
// correctly. NotifyDiscard is never gated — it must stay infallible
// regardless of listener health.
type BreakerListener struct {
	inner   Listener
	breaker *gobreaker.CircuitBreaker
}

// BreakerConfig tunes the circuit breaker wrapping a listener.
type BreakerConfig struct {
	// Name identifies the breaker in logs/metrics.
	Name string
	// MaxFailures is the number of consecutive notify_populate failures
	// that trips the breaker open.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before allowing a
	// single trial call through (half-open).
	OpenTimeout time.Duration
}

// NewBreakerListener wraps inner with a circuit breaker per cfg.
func NewBreakerListener(inner Listener, cfg BreakerConfig) *BreakerListener {
	max := cfg.MaxFailures
	if max == 0 {
		max = 3
	}
	timeout := cfg.OpenTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= max
		},
	}

	return &BreakerListener{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// NotifyPopulate runs inner.NotifyPopulate through the circuit breaker.
func (b *BreakerListener) NotifyPopulate(section Section) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.inner.NotifyPopulate(section)
	})
	return err
}

// NotifyDiscard always reaches inner directly; discard cannot fail.
func (b *BreakerListener) NotifyDiscard(section Section) {
	b.inner.NotifyDiscard(section)
}
