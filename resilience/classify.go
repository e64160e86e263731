// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/mattermost/omnisearch/providers"
)

// Classify maps an adapter-level failure into the error taxonomy. Every
// failure an adapter can produce resolves to exactly one kind; the
// dispatcher and its callers never re-interpret raw errors.
func Classify(id providers.ID, err error) *providers.Error {
	var classified *providers.Error
	if errors.As(err, &classified) {
		if classified.Provider == "" {
			classified.Provider = id
		}
		return classified
	}

	var upstream *providers.UpstreamError
	if errors.As(err, &upstream) {
		return classifyStatus(id, upstream)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return providers.WrapError(providers.ErrTimeout, id, "attempt exceeded the per-call deadline", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return providers.WrapError(providers.ErrTimeout, id, "network timeout", err)
		}
		return providers.WrapError(providers.ErrTransientUpstream, id, "network failure reaching provider", err)
	}

	return providers.WrapError(providers.ErrTransientUpstream, id, fmt.Sprintf("provider call failed: %v", err), err)
}

func classifyStatus(id providers.ID, upstream *providers.UpstreamError) *providers.Error {
	switch {
	case upstream.StatusCode == http.StatusTooManyRequests:
		return providers.WrapError(providers.ErrRateLimited, id, "provider is throttling requests", upstream)
	case upstream.StatusCode == http.StatusRequestTimeout:
		return providers.WrapError(providers.ErrTimeout, id, "provider timed out handling the request", upstream)
	case upstream.StatusCode == http.StatusBadRequest:
		return providers.WrapError(providers.ErrInvalidParameters, id, upstreamMessage(upstream, "provider rejected the request parameters"), upstream)
	case upstream.StatusCode == http.StatusUnauthorized || upstream.StatusCode == http.StatusForbidden:
		return providers.WrapError(providers.ErrTerminalUpstream, id, "provider rejected the configured credentials", upstream)
	case upstream.StatusCode >= 500:
		return providers.WrapError(providers.ErrTransientUpstream, id, fmt.Sprintf("provider returned status %d", upstream.StatusCode), upstream)
	case upstream.StatusCode >= 400:
		return providers.WrapError(providers.ErrTerminalUpstream, id, fmt.Sprintf("provider returned status %d", upstream.StatusCode), upstream)
	}
	return providers.WrapError(providers.ErrTransientUpstream, id, fmt.Sprintf("unexpected provider status %d", upstream.StatusCode), upstream)
}

func upstreamMessage(upstream *providers.UpstreamError, fallback string) string {
	if upstream.Message != "" {
		return upstream.Message
	}
	return fallback
}
