// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package providers

import "fmt"

// ErrorKind is the classification surfaced to callers. Callers never see
// provider-native error shapes, only these kinds plus a human-readable
// message.
type ErrorKind string

const (
	// ErrProviderUnknown means the identity was never registered.
	ErrProviderUnknown ErrorKind = "provider_unknown"
	// ErrProviderDisabled means the identity is registered but missing
	// credentials.
	ErrProviderDisabled ErrorKind = "provider_disabled"
	// ErrNoProviderForCapability means no enabled provider supports the
	// requested capability.
	ErrNoProviderForCapability ErrorKind = "no_provider_for_capability"
	// ErrInvalidParameters means the request failed input validation.
	ErrInvalidParameters ErrorKind = "invalid_parameters"
	// ErrRateLimited means the provider signaled throttling, or the local
	// per-provider rate limit rejected the call before it left the process.
	ErrRateLimited ErrorKind = "rate_limited"
	// ErrTimeout means a single attempt exceeded its deadline.
	ErrTimeout ErrorKind = "timeout"
	// ErrTransientUpstream covers network failures and 5xx-equivalents.
	ErrTransientUpstream ErrorKind = "transient_upstream"
	// ErrTerminalUpstream covers auth failures and 4xx-equivalents.
	ErrTerminalUpstream ErrorKind = "terminal_upstream"
	// ErrMalformedResponse means a success payload did not normalize.
	ErrMalformedResponse ErrorKind = "malformed_provider_response"
	// ErrOverloaded means the per-provider concurrency cap was exceeded or
	// the circuit breaker is open.
	ErrOverloaded ErrorKind = "overloaded"
	// ErrDeadlineExceeded means the overall invocation budget was exhausted.
	ErrDeadlineExceeded ErrorKind = "deadline_exceeded"
)

// Retryable reports whether an invocation failing with this kind may be
// usefully retried by the resilience layer. Overloaded and DeadlineExceeded
// are deliberately not retryable in-invocation; the caller may retry later.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrRateLimited, ErrTimeout, ErrTransientUpstream:
		return true
	}
	return false
}

// Error is a classified failure: a taxonomy kind, the provider it concerns
// (empty for dispatch-level failures), and a message safe to show callers.
type Error struct {
	Kind     ErrorKind
	Provider ID
	Message  string
	cause    error
}

func NewError(kind ErrorKind, provider ID, message string) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message}
}

// WrapError attaches the underlying cause for logging; the cause is never
// serialized to callers.
func WrapError(kind ErrorKind, provider ID, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the caller may retry the whole invocation.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}
