// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package resilience

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state for one provider.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig tunes the per-provider circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that trips the
	// breaker open.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// HalfOpenMax caps probe calls while half-open.
	HalfOpenMax int
}

// DefaultBreakerConfig matches a provider that should back off for a minute
// after five consecutive failures.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         time.Minute,
		HalfOpenMax:      2,
	}
}

// Breaker rejects calls to a provider that keeps failing, letting it recover
// instead of burning quota and invocation budget. Closed is normal
// operation; Open rejects everything until the cooldown elapses; HalfOpen
// admits a bounded number of probes and closes again on the first success.
type Breaker struct {
	mu sync.Mutex

	cfg   BreakerConfig
	clock Clock

	state         BreakerState
	failures      int
	halfOpenCalls int
	openedAt      time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig, clock Clock) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = DefaultBreakerConfig().HalfOpenMax
	}
	return &Breaker{cfg: cfg, clock: clock, state: BreakerClosed}
}

// Allow reports whether a call may proceed, transitioning open breakers to
// half-open once the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.clock.Now().Sub(b.openedAt) < b.cfg.Cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.halfOpenCalls = 1
		return true
	case BreakerHalfOpen:
		if b.halfOpenCalls >= b.cfg.HalfOpenMax {
			return false
		}
		b.halfOpenCalls++
		return true
	}
	return true
}

// OnSuccess records a successful call, closing a half-open breaker.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.halfOpenCalls = 0
	b.state = BreakerClosed
}

// OnFailure records a failed call, tripping the breaker once the threshold
// is reached. A failure while half-open reopens immediately.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = BreakerOpen
		b.openedAt = b.clock.Now()
		b.halfOpenCalls = 0
	}
}

// State returns the current state for health reporting.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
