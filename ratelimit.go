package memattr

import (
	"time"

	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"
)

// RateLimitedManager decorates a Manager's StateChange entry point with a
// token bucket, guarding against a guest hypercall path hammering
// shared/private flips. It never reorders or buffers calls — a rejected
// call is simply rejected — so it introduces no concurrency of its own
// onto the wrapped Manager.
type RateLimitedManager struct {
	*Manager
	limiter *limiter.TokenBucket
}

// RateLimitConfig configures the token bucket backing a RateLimitedManager.
type RateLimitConfig struct {
	// PerSecond is the sustained rate of allowed StateChange calls.
	PerSecond int64
	// Burst is the maximum number of calls admitted instantaneously.
	Burst int64
}

// NewRateLimitedManager wraps m with a token bucket limiting StateChange
// calls keyed by callerID (e.g. a guest/vCPU identifier).
func NewRateLimitedManager(m *Manager, cfg RateLimitConfig) (*RateLimitedManager, error) {
	bucket, err := limiter.NewTokenBucket(
		limiter.Config{
			Rate:     cfg.PerSecond,
			Duration: time.Second,
			Burst:    cfg.Burst,
		},
		store.NewMemoryStore(time.Minute),
	)
	if err != nil {
		return nil, newError("NewRateLimitedManager", ErrCodeRateLimited, err)
	}
	return &RateLimitedManager{Manager: m, limiter: bucket}, nil
}

// StateChange rejects with ErrCodeRateLimited before ever touching the
// bitmap if callerID has exceeded its token bucket; otherwise it delegates
// to the wrapped Manager unchanged.
func (r *RateLimitedManager) StateChange(callerID string, offset, size uint64, toPrivate bool) error {
	if !r.limiter.Allow(callerID) {
		return newError("StateChange", ErrCodeRateLimited, nil)
	}
	return r.Manager.StateChange(offset, size, toPrivate)
}
