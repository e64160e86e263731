// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package dispatcher

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/omnisearch/providers"
	"github.com/mattermost/omnisearch/resilience"
)

// countingAdapter serves a fixed payload, or an error when err is set.
type countingAdapter struct {
	payload any
	err     error
	calls   atomic.Int32
}

func (a *countingAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	return &providers.RawResult{Payload: a.payload}, nil
}

// fakeStore is an unbounded Store with direct access to its entries.
type fakeStore struct {
	entries map[string]*providers.NormalizedResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*providers.NormalizedResult)}
}

func (s *fakeStore) Get(_ context.Context, key string) (*providers.NormalizedResult, bool) {
	result, ok := s.entries[key]
	return result, ok
}

func (s *fakeStore) Put(_ context.Context, key string, result *providers.NormalizedResult, ttl time.Duration) {
	if ttl > 0 {
		s.entries[key] = result
	}
}

func (s *fakeStore) Len() int { return len(s.entries) }

func searchResults(n int) map[string]any {
	items := make([]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"title":   "Result",
			"url":     "https://example.com",
			"snippet": "snippet",
		})
	}
	return map[string]any{"results": items}
}

func descriptor(id providers.ID, capability providers.Capability, priority int, creds ...string) providers.Descriptor {
	d := providers.Descriptor{
		ID:                  id,
		Capability:          capability,
		RequiredCredentials: creds,
		Timeout:             5 * time.Second,
		Budget:              30 * time.Second,
		MaxInFlight:         4,
		Priority:            priority,
		Retry:               providers.DefaultRetryPolicy(),
	}
	if capability.Cacheable() {
		d.CacheTTL = 5 * time.Minute
	}
	return d
}

type harness struct {
	dispatcher *Dispatcher
	store      *fakeStore
}

func newHarness(t *testing.T, enabled providers.EnabledSet, register func(*providers.Registry)) *harness {
	t.Helper()
	registry := providers.NewRegistry(enabled)
	register(registry)

	executor := resilience.NewExecutor(registry.Descriptors(), resilience.Options{
		BackOff: func(providers.RetryPolicy) backoff.BackOff { return backoff.NewConstantBackOff(0) },
	})
	store := newFakeStore()
	return &harness{
		dispatcher: New(registry, executor, store, nil, nil),
		store:      store,
	}
}

func TestDispatcherHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled provider fails without invoking anything", func(t *testing.T) {
		adapter := &countingAdapter{payload: searchResults(1)}
		h := newHarness(t, providers.EnabledSet{}, func(r *providers.Registry) {
			require.NoError(t, r.Register(descriptor("tavily", providers.CapabilitySearch, 1, "TAVILY_API_KEY"), adapter))
		})

		outcome := h.dispatcher.Handle(ctx, ToolCall{Provider: "tavily", Capability: providers.CapabilitySearch, Params: providers.Params{"query": "q"}})
		require.False(t, outcome.OK())
		require.Equal(t, providers.ErrProviderDisabled, outcome.Err.Kind)
		require.Contains(t, outcome.Err.Message, "TAVILY_API_KEY")
		require.Equal(t, int32(0), adapter.calls.Load())
	})

	t.Run("unknown provider", func(t *testing.T) {
		h := newHarness(t, providers.EnabledSet{}, func(r *providers.Registry) {})
		outcome := h.dispatcher.Handle(ctx, ToolCall{Provider: "mystery", Capability: providers.CapabilitySearch, Params: providers.Params{"query": "q"}})
		require.Equal(t, providers.ErrProviderUnknown, outcome.Err.Kind)
	})

	t.Run("invalid parameters are rejected before dispatch", func(t *testing.T) {
		adapter := &countingAdapter{payload: searchResults(1)}
		h := newHarness(t, providers.EnabledSet{"tavily": {}}, func(r *providers.Registry) {
			require.NoError(t, r.Register(descriptor("tavily", providers.CapabilitySearch, 1), adapter))
		})

		outcome := h.dispatcher.Handle(ctx, ToolCall{Provider: "tavily", Capability: providers.CapabilitySearch, Params: providers.Params{}})
		require.Equal(t, providers.ErrInvalidParameters, outcome.Err.Kind)
		require.Equal(t, int32(0), adapter.calls.Load())
	})

	t.Run("explicit provider with the wrong capability is rejected", func(t *testing.T) {
		adapter := &countingAdapter{payload: map[string]any{"answer": "forty-two"}}
		h := newHarness(t, providers.EnabledSet{"perplexity": {}}, func(r *providers.Registry) {
			require.NoError(t, r.Register(descriptor("perplexity", providers.CapabilityAnswer, 1), adapter))
		})

		outcome := h.dispatcher.Handle(ctx, ToolCall{Provider: "perplexity", Capability: providers.CapabilitySearch, Params: providers.Params{"query": "q"}})
		require.False(t, outcome.OK())
		require.Equal(t, providers.ErrInvalidParameters, outcome.Err.Kind)
		require.Contains(t, outcome.Err.Message, "answer")
		require.Equal(t, int32(0), adapter.calls.Load(), "the mismatched adapter must never run")
	})

	t.Run("search success is normalized and cached", func(t *testing.T) {
		adapter := &countingAdapter{payload: searchResults(3)}
		h := newHarness(t, providers.EnabledSet{"tavily": {}}, func(r *providers.Registry) {
			require.NoError(t, r.Register(descriptor("tavily", providers.CapabilitySearch, 1), adapter))
		})

		call := ToolCall{Provider: "tavily", Capability: providers.CapabilitySearch, Params: providers.Params{"query": "golang"}}

		outcome := h.dispatcher.Handle(ctx, call)
		require.True(t, outcome.OK())
		require.Equal(t, providers.ResultSearchHits, outcome.Result.Kind)
		require.Len(t, outcome.Result.SearchHits.Hits, 3)
		require.Equal(t, 1, h.store.Len())

		// Second identical call is served from cache.
		outcome = h.dispatcher.Handle(ctx, call)
		require.True(t, outcome.OK())
		require.Len(t, outcome.Result.SearchHits.Hits, 3)
		require.Equal(t, int32(1), adapter.calls.Load(), "cache hit must not invoke the adapter")
	})

	t.Run("answer results are never cached", func(t *testing.T) {
		adapter := &countingAdapter{payload: map[string]any{"answer": "forty-two"}}
		h := newHarness(t, providers.EnabledSet{"perplexity": {}}, func(r *providers.Registry) {
			require.NoError(t, r.Register(descriptor("perplexity", providers.CapabilityAnswer, 1), adapter))
		})

		call := ToolCall{Provider: "perplexity", Capability: providers.CapabilityAnswer, Params: providers.Params{"query": "meaning of life"}}
		require.True(t, h.dispatcher.Handle(ctx, call).OK())
		require.True(t, h.dispatcher.Handle(ctx, call).OK())
		require.Equal(t, int32(2), adapter.calls.Load())
		require.Equal(t, 0, h.store.Len())
	})

	t.Run("auth failure surfaces as terminal upstream with no retries", func(t *testing.T) {
		adapter := &countingAdapter{err: &providers.UpstreamError{StatusCode: http.StatusUnauthorized}}
		h := newHarness(t, providers.EnabledSet{"tavily": {}}, func(r *providers.Registry) {
			require.NoError(t, r.Register(descriptor("tavily", providers.CapabilitySearch, 1), adapter))
		})

		outcome := h.dispatcher.Handle(ctx, ToolCall{Provider: "tavily", Capability: providers.CapabilitySearch, Params: providers.Params{"query": "q"}})
		require.Equal(t, providers.ErrTerminalUpstream, outcome.Err.Kind)
		require.Equal(t, int32(1), adapter.calls.Load())
		require.Equal(t, 0, h.store.Len(), "failures are never cached")
	})

	t.Run("malformed payload fails closed and is not cached", func(t *testing.T) {
		adapter := &countingAdapter{payload: map[string]any{"results": "not a list"}}
		h := newHarness(t, providers.EnabledSet{"tavily": {}}, func(r *providers.Registry) {
			require.NoError(t, r.Register(descriptor("tavily", providers.CapabilitySearch, 1), adapter))
		})

		outcome := h.dispatcher.Handle(ctx, ToolCall{Provider: "tavily", Capability: providers.CapabilitySearch, Params: providers.Params{"query": "q"}})
		require.Equal(t, providers.ErrMalformedResponse, outcome.Err.Kind)
		require.Equal(t, 0, h.store.Len())
	})

	t.Run("capability dispatch picks the highest-priority enabled provider", func(t *testing.T) {
		primary := &countingAdapter{payload: searchResults(1)}
		secondary := &countingAdapter{payload: searchResults(2)}
		h := newHarness(t, providers.EnabledSet{"brave": {}}, func(r *providers.Registry) {
			require.NoError(t, r.Register(descriptor("tavily", providers.CapabilitySearch, 1, "TAVILY_API_KEY"), primary))
			require.NoError(t, r.Register(descriptor("brave", providers.CapabilitySearch, 2), secondary))
		})

		outcome := h.dispatcher.Handle(ctx, ToolCall{Capability: providers.CapabilitySearch, Params: providers.Params{"query": "q"}})
		require.True(t, outcome.OK())
		require.Equal(t, providers.ID("brave"), outcome.Result.Provider, "disabled tavily is skipped")
		require.Equal(t, int32(0), primary.calls.Load())
		require.Equal(t, int32(1), secondary.calls.Load())
	})

	t.Run("no enabled provider for capability", func(t *testing.T) {
		h := newHarness(t, providers.EnabledSet{}, func(r *providers.Registry) {
			require.NoError(t, r.Register(descriptor("perplexity", providers.CapabilityAnswer, 1, "PERPLEXITY_API_KEY"), &countingAdapter{}))
		})

		outcome := h.dispatcher.Handle(ctx, ToolCall{Capability: providers.CapabilityAnswer, Params: providers.Params{"query": "q"}})
		require.Equal(t, providers.ErrNoProviderForCapability, outcome.Err.Kind)
	})

	t.Run("nil store degrades to always-miss", func(t *testing.T) {
		adapter := &countingAdapter{payload: searchResults(1)}
		registry := providers.NewRegistry(providers.EnabledSet{"tavily": {}})
		require.NoError(t, registry.Register(descriptor("tavily", providers.CapabilitySearch, 1), adapter))
		executor := resilience.NewExecutor(registry.Descriptors(), resilience.Options{})
		d := New(registry, executor, nil, nil, nil)

		call := ToolCall{Provider: "tavily", Capability: providers.CapabilitySearch, Params: providers.Params{"query": "q"}}
		require.True(t, d.Handle(ctx, call).OK())
		require.True(t, d.Handle(ctx, call).OK())
		require.Equal(t, int32(2), adapter.calls.Load())
	})
}
