// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package dispatcher maps normalized tool calls onto provider adapters and
// runs them under the resilience policy, consulting the result cache for
// idempotent capabilities.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mattermost/omnisearch/cache"
	"github.com/mattermost/omnisearch/metrics"
	"github.com/mattermost/omnisearch/normalize"
	"github.com/mattermost/omnisearch/providers"
	"github.com/mattermost/omnisearch/resilience"
)

// Logger abstracts the logging interface used by the dispatcher.
type Logger interface {
	Debug(message string, keyValuePairs ...any)
	Info(message string, keyValuePairs ...any)
	Warn(message string, keyValuePairs ...any)
	Error(message string, keyValuePairs ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// ToolCall is one normalized inbound invocation. Provider may be empty,
// meaning "any enabled provider of this capability"; the dispatcher then
// picks the first enabled provider in declared priority order, a
// deterministic choice independent of load.
type ToolCall struct {
	Provider   providers.ID
	Capability providers.Capability
	Params     providers.Params
}

// Dispatcher resolves tool calls through the registry and executes them
// under the resilience policy. It holds no mutable state of its own and is
// safe for concurrent use.
type Dispatcher struct {
	registry *providers.Registry
	executor *resilience.Executor
	store    cache.Store
	metrics  metrics.Metrics
	logger   Logger
}

// New creates a dispatcher. store may be nil, which degrades every lookup
// to a miss; m may be nil to disable instrumentation.
func New(registry *providers.Registry, executor *resilience.Executor, store cache.Store, m metrics.Metrics, logger Logger) *Dispatcher {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Dispatcher{
		registry: registry,
		executor: executor,
		store:    store,
		metrics:  m,
		logger:   logger,
	}
}

// Handle runs one tool call end to end: validate, resolve, consult cache,
// execute, normalize, write through. It always returns a structured outcome;
// no invocation is ever silently dropped.
func (d *Dispatcher) Handle(ctx context.Context, call ToolCall) providers.Outcome {
	invocationID := uuid.NewString()

	if cerr := providers.ValidateParams(call.Capability, call.Params); cerr != nil {
		return d.failed(invocationID, cerr)
	}

	adapter, desc, cerr := d.resolve(call)
	if cerr != nil {
		return d.failed(invocationID, cerr)
	}

	cacheable := desc.Capability.Cacheable() && d.store != nil
	var key string
	if cacheable {
		key = cache.Key(desc.ID, desc.Capability, call.Params)
		if result, ok := d.store.Get(ctx, key); ok {
			d.countCache(true)
			d.countOutcome("cache_hit")
			d.logger.Debug("Serving tool call from cache",
				"invocation_id", invocationID,
				"provider", string(desc.ID),
				"capability", string(desc.Capability))
			return providers.Succeeded(result)
		}
		d.countCache(false)
	}

	raw, retryState, cerr := d.executor.Execute(ctx, desc, adapter, call.Params)
	d.observeCall(desc.ID, retryState)
	if cerr != nil {
		d.logger.Info("Tool call failed",
			"invocation_id", invocationID,
			"provider", string(desc.ID),
			"capability", string(desc.Capability),
			"kind", string(cerr.Kind),
			"attempts", retryState.Attempts)
		return d.failed(invocationID, cerr)
	}

	result, cerr := normalize.Normalize(desc.ID, desc.Capability, raw)
	if cerr != nil {
		d.logger.Warn("Provider response failed to normalize",
			"invocation_id", invocationID,
			"provider", string(desc.ID),
			"error", cerr.Message)
		return d.failed(invocationID, cerr)
	}

	if cacheable {
		d.store.Put(ctx, key, result, desc.CacheTTL)
	}

	d.countOutcome("ok")
	d.logger.Debug("Tool call succeeded",
		"invocation_id", invocationID,
		"provider", string(desc.ID),
		"capability", string(desc.Capability),
		"attempts", retryState.Attempts,
		"retries", retryState.Retries,
		"elapsed", retryState.Elapsed.String())
	return providers.Succeeded(result)
}

// resolve picks the adapter for a call: explicit identity when given,
// otherwise the capability's fallback chain. An explicit provider must
// implement the requested capability; otherwise its adapter would run under
// the wrong normalization path and hand callers a shape they did not ask for.
func (d *Dispatcher) resolve(call ToolCall) (providers.Adapter, providers.Descriptor, *providers.Error) {
	if call.Provider != "" {
		adapter, desc, cerr := d.registry.Resolve(call.Provider)
		if cerr != nil {
			return nil, providers.Descriptor{}, cerr
		}
		if desc.Capability != call.Capability {
			return nil, providers.Descriptor{}, providers.NewError(
				providers.ErrInvalidParameters, call.Provider,
				fmt.Sprintf("provider %q implements capability %q, not %q", call.Provider, desc.Capability, call.Capability))
		}
		return adapter, desc, nil
	}
	ids := d.registry.ResolveByCapability(call.Capability)
	if len(ids) == 0 {
		return nil, providers.Descriptor{}, providers.NewError(
			providers.ErrNoProviderForCapability, "",
			fmt.Sprintf("no enabled provider supports capability %q", call.Capability))
	}
	return d.registry.Resolve(ids[0])
}

func (d *Dispatcher) failed(invocationID string, cerr *providers.Error) providers.Outcome {
	d.countOutcome(string(cerr.Kind))
	d.logger.Debug("Tool call resolved to error",
		"invocation_id", invocationID,
		"kind", string(cerr.Kind),
		"message", cerr.Message)
	return providers.Failed(cerr)
}

func (d *Dispatcher) countOutcome(kind string) {
	if d.metrics != nil {
		d.metrics.IncrementDispatchOutcome(kind)
	}
}

func (d *Dispatcher) countCache(hit bool) {
	if d.metrics == nil {
		return
	}
	if hit {
		d.metrics.IncrementCacheHits()
	} else {
		d.metrics.IncrementCacheMisses()
	}
}

func (d *Dispatcher) observeCall(id providers.ID, state resilience.RetryState) {
	if d.metrics == nil {
		return
	}
	d.metrics.ObserveProviderCall(string(id), state.Elapsed.Seconds())
	for i := 0; i < state.Retries; i++ {
		d.metrics.IncrementProviderRetries(string(id))
	}
}
