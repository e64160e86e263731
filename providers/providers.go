// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package providers

import (
	"context"
	"fmt"
	"time"
)

// Capability is a category of operation multiple providers may implement.
type Capability string

const (
	CapabilitySearch  Capability = "search"
	CapabilityAnswer  Capability = "answer"
	CapabilityExtract Capability = "extract"
	CapabilityEnrich  Capability = "enrich"
)

// Capabilities lists every capability the registry understands, in a fixed order.
func Capabilities() []Capability {
	return []Capability{CapabilitySearch, CapabilityAnswer, CapabilityExtract, CapabilityEnrich}
}

// Cacheable reports whether results for this capability may be served from
// the result cache. Search and extract are read-only and idempotent; answer
// results have freshness requirements and enrichment calls are treated as
// side-effectful.
func (c Capability) Cacheable() bool {
	return c == CapabilitySearch || c == CapabilityExtract
}

// Valid reports whether the capability is one the registry understands.
func (c Capability) Valid() bool {
	switch c {
	case CapabilitySearch, CapabilityAnswer, CapabilityExtract, CapabilityEnrich:
		return true
	}
	return false
}

// ID is a stable provider identity, unique across the registry. It is used
// as a cache-key component and for log correlation, so it must not change
// across process restarts.
type ID string

// Params is the parameter mapping of a tool call: string keys to scalar or
// array values, already decoded from the transport layer.
type Params map[string]any

// RawResult is an adapter's success payload before normalization. Payload
// holds loosely-typed decoded JSON; only the normalizer is allowed to
// interpret it.
type RawResult struct {
	Payload any
}

// Adapter is the narrow per-provider translation of parameters to and from
// that provider's native protocol. Adapters must honor ctx cancellation and
// must never retry internally; retry is the resilience layer's exclusive
// responsibility.
type Adapter interface {
	Invoke(ctx context.Context, params Params) (*RawResult, error)
}

// RetryPolicy bounds the retry loop for one provider.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy is used by descriptors that do not declare their own.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      2,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// Descriptor is the declarative metadata for one provider. Descriptors are
// created once at startup and owned exclusively by the registry; they are
// immutable thereafter.
type Descriptor struct {
	ID         ID
	Capability Capability

	// RequiredCredentials are the configuration keys that must all be
	// present and non-empty for the provider to be enabled. An empty list
	// means the provider needs no credentials.
	RequiredCredentials []string

	// Timeout bounds a single attempt against the provider.
	Timeout time.Duration

	// Budget bounds the whole invocation including retries and backoff.
	Budget time.Duration

	// MaxInFlight caps simultaneous calls to this provider.
	MaxInFlight int64

	// RatePerMinute caps the sustained request rate to this provider, with
	// a burst allowance of the same size. Zero means unlimited.
	RatePerMinute int

	// Priority orders providers within a capability for capability-based
	// dispatch. Lower is preferred. Ties break on ID for determinism.
	Priority int

	// CacheTTL is how long normalized results stay servable from cache.
	// Only consulted for cacheable capabilities.
	CacheTTL time.Duration

	Retry RetryPolicy
}

func (d Descriptor) validate() error {
	if d.ID == "" {
		return fmt.Errorf("descriptor has empty provider id")
	}
	if !d.Capability.Valid() {
		return fmt.Errorf("provider %q declares unknown capability %q", d.ID, d.Capability)
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("provider %q declares non-positive timeout", d.ID)
	}
	if d.Capability.Cacheable() && d.CacheTTL <= 0 {
		return fmt.Errorf("provider %q is cacheable but declares non-positive cache TTL", d.ID)
	}
	return nil
}

// EnabledSet is the subset of provider identities whose required credentials
// all resolved at startup. It is computed once and read-only for the process
// lifetime.
type EnabledSet map[ID]struct{}

// Has reports whether the provider is enabled.
func (s EnabledSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// UpstreamError is the error shape adapters return for non-2xx provider
// responses. The resilience layer classifies it into the taxonomy; nothing
// above that layer ever sees it.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}
