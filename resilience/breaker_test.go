// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock. Sleep advances time instead of
// blocking so retry loops run instantly under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestBreaker(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute, HalfOpenMax: 2}

	t.Run("opens after consecutive failures", func(t *testing.T) {
		clock := newFakeClock()
		b := NewBreaker(cfg, clock)

		require.Equal(t, BreakerClosed, b.State())
		b.OnFailure()
		b.OnFailure()
		require.Equal(t, BreakerClosed, b.State())
		require.True(t, b.Allow())

		b.OnFailure()
		require.Equal(t, BreakerOpen, b.State())
		require.False(t, b.Allow())
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		clock := newFakeClock()
		b := NewBreaker(cfg, clock)

		b.OnFailure()
		b.OnFailure()
		b.OnSuccess()
		b.OnFailure()
		b.OnFailure()
		require.Equal(t, BreakerClosed, b.State())
	})

	t.Run("half-opens after cooldown and closes on probe success", func(t *testing.T) {
		clock := newFakeClock()
		b := NewBreaker(cfg, clock)

		for i := 0; i < cfg.FailureThreshold; i++ {
			b.OnFailure()
		}
		require.False(t, b.Allow())

		clock.Advance(cfg.Cooldown)
		require.True(t, b.Allow())
		require.Equal(t, BreakerHalfOpen, b.State())

		b.OnSuccess()
		require.Equal(t, BreakerClosed, b.State())
		require.True(t, b.Allow())
	})

	t.Run("half-open failure reopens immediately", func(t *testing.T) {
		clock := newFakeClock()
		b := NewBreaker(cfg, clock)

		for i := 0; i < cfg.FailureThreshold; i++ {
			b.OnFailure()
		}
		clock.Advance(cfg.Cooldown)
		require.True(t, b.Allow())

		b.OnFailure()
		require.Equal(t, BreakerOpen, b.State())
		require.False(t, b.Allow())
	})

	t.Run("half-open caps concurrent probes", func(t *testing.T) {
		clock := newFakeClock()
		b := NewBreaker(cfg, clock)

		for i := 0; i < cfg.FailureThreshold; i++ {
			b.OnFailure()
		}
		clock.Advance(cfg.Cooldown)

		require.True(t, b.Allow())
		require.True(t, b.Allow())
		require.False(t, b.Allow(), "third probe exceeds HalfOpenMax")
	})
}
