// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/mattermost/omnisearch/providers"
)

// DefaultBudget bounds a whole invocation, retries and backoff included,
// for descriptors that do not declare their own budget.
const DefaultBudget = 30 * time.Second

// Logger abstracts the logging interface used by the executor.
type Logger interface {
	Debug(message string, keyValuePairs ...any)
	Warn(message string, keyValuePairs ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// BackOffFactory produces the backoff schedule for one invocation. Tests
// inject a zero-delay factory; production uses exponential backoff with
// jitter from the descriptor's retry policy.
type BackOffFactory func(policy providers.RetryPolicy) backoff.BackOff

// ExponentialBackOff is the production BackOffFactory.
func ExponentialBackOff(policy providers.RetryPolicy) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.MaxInterval = policy.MaxInterval
	bo.Multiplier = policy.Multiplier
	bo.RandomizationFactor = 0.5
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// RetryState is the transient per-invocation record: how many attempts ran,
// how long the invocation took, and the last classified failure kind. It is
// returned for logging and tests, then discarded.
type RetryState struct {
	Attempts  int
	Retries   int
	Elapsed   time.Duration
	LastError providers.ErrorKind
}

// Options configures an Executor. Zero values fall back to production
// defaults.
type Options struct {
	Clock   Clock
	BackOff BackOffFactory
	Breaker BreakerConfig
	Logger  Logger
}

// Executor wraps adapter invocations with a per-attempt timeout, bounded
// retries with backoff, a per-provider concurrency cap, a per-provider
// request-rate cap, and a circuit breaker. Every failure leaving the
// executor is classified; callers never see provider-native error shapes.
type Executor struct {
	clock      Clock
	newBackOff BackOffFactory
	logger     Logger

	limiters map[providers.ID]*semaphore.Weighted
	rates    map[providers.ID]*rate.Limiter
	breakers map[providers.ID]*Breaker
}

// NewExecutor builds the per-provider limiters and breakers from the
// registered descriptors. Descriptors without a concurrency cap get an
// effectively unbounded limiter.
func NewExecutor(descriptors []providers.Descriptor, opts Options) *Executor {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.BackOff == nil {
		opts.BackOff = ExponentialBackOff
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	e := &Executor{
		clock:      opts.Clock,
		newBackOff: opts.BackOff,
		logger:     opts.Logger,
		limiters:   make(map[providers.ID]*semaphore.Weighted, len(descriptors)),
		rates:      make(map[providers.ID]*rate.Limiter, len(descriptors)),
		breakers:   make(map[providers.ID]*Breaker, len(descriptors)),
	}
	for _, desc := range descriptors {
		max := desc.MaxInFlight
		if max <= 0 {
			max = 1 << 30
		}
		e.limiters[desc.ID] = semaphore.NewWeighted(max)
		if desc.RatePerMinute > 0 {
			e.rates[desc.ID] = rate.NewLimiter(rate.Limit(float64(desc.RatePerMinute)/60), desc.RatePerMinute)
		}
		e.breakers[desc.ID] = NewBreaker(opts.Breaker, opts.Clock)
	}
	return e
}

// BreakerState returns the circuit breaker state for health reporting.
func (e *Executor) BreakerState(id providers.ID) BreakerState {
	if b, ok := e.breakers[id]; ok {
		return b.State()
	}
	return BreakerClosed
}

// Execute runs one adapter invocation under the resilience policy. Retries
// apply only to retryable classifications and stop once attempts or the
// invocation budget are exhausted; exceeding the budget forces a
// DeadlineExceeded classification regardless of remaining attempts.
func (e *Executor) Execute(ctx context.Context, desc providers.Descriptor, adapter providers.Adapter, params providers.Params) (*providers.RawResult, RetryState, *providers.Error) {
	state := RetryState{}
	start := e.clock.Now()
	finish := func() {
		state.Elapsed = e.clock.Now().Sub(start)
	}

	limiter := e.limiters[desc.ID]
	if limiter == nil || !limiter.TryAcquire(1) {
		finish()
		return nil, state, providers.NewError(providers.ErrOverloaded, desc.ID, "provider concurrency cap exceeded")
	}
	defer limiter.Release(1)

	// Local rate rejection happens before the call leaves the process and
	// does not count against the breaker.
	if rl := e.rates[desc.ID]; rl != nil && !rl.Allow() {
		finish()
		state.LastError = providers.ErrRateLimited
		return nil, state, providers.NewError(providers.ErrRateLimited, desc.ID, "provider request rate exceeded")
	}

	breaker := e.breakers[desc.ID]
	if !breaker.Allow() {
		finish()
		return nil, state, providers.NewError(providers.ErrOverloaded, desc.ID, "provider circuit breaker is open")
	}

	budget := desc.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	invocationCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	bo := e.newBackOff(desc.Retry)
	var lastErr *providers.Error
	for {
		attemptCtx, cancelAttempt := context.WithTimeout(invocationCtx, desc.Timeout)
		raw, err := adapter.Invoke(attemptCtx, params)
		cancelAttempt()
		state.Attempts++

		if err == nil {
			breaker.OnSuccess()
			finish()
			return raw, state, nil
		}

		// An attempt failing because the invocation budget ran out is a
		// deadline exhaustion, not a per-attempt timeout.
		if invocationCtx.Err() != nil {
			breaker.OnFailure()
			finish()
			state.LastError = providers.ErrDeadlineExceeded
			return nil, state, providers.WrapError(providers.ErrDeadlineExceeded, desc.ID, "invocation budget exhausted", err)
		}

		lastErr = Classify(desc.ID, err)
		state.LastError = lastErr.Kind
		if lastErr.Kind != providers.ErrInvalidParameters {
			breaker.OnFailure()
		}

		if !lastErr.Retryable() {
			e.logger.Debug("provider call failed terminally",
				"provider", string(desc.ID),
				"kind", string(lastErr.Kind),
				"attempts", state.Attempts)
			finish()
			return nil, state, lastErr
		}
		if state.Attempts > desc.Retry.MaxRetries {
			finish()
			return nil, state, lastErr
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			finish()
			return nil, state, lastErr
		}
		if deadline, ok := invocationCtx.Deadline(); ok && e.clock.Now().Add(delay).After(deadline) {
			finish()
			state.LastError = providers.ErrDeadlineExceeded
			return nil, state, providers.WrapError(providers.ErrDeadlineExceeded, desc.ID, "invocation budget exhausted", lastErr)
		}

		e.logger.Debug("retrying provider call",
			"provider", string(desc.ID),
			"kind", string(lastErr.Kind),
			"attempt", state.Attempts,
			"backoff", delay.String())
		if err := e.clock.Sleep(invocationCtx, delay); err != nil {
			finish()
			state.LastError = providers.ErrDeadlineExceeded
			return nil, state, providers.WrapError(providers.ErrDeadlineExceeded, desc.ID, "invocation budget exhausted", err)
		}
		state.Retries++
	}
}
