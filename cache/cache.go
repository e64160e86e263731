// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package cache stores normalized results for idempotent provider calls so
// repeated queries do not spend paid API quota. Backends satisfy one Store
// contract; absence of a cache degrades to "always miss" without affecting
// correctness, only cost, so backends swallow their own errors and report
// misses instead of propagating failures into the dispatch path.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mattermost/omnisearch/providers"
)

// Store is the result cache contract. A concurrent Get and Put for the same
// key may race; the more-recent Put silently supersedes. Entries are never
// served past expiry.
type Store interface {
	Get(ctx context.Context, key string) (*providers.NormalizedResult, bool)
	Put(ctx context.Context, key string, result *providers.NormalizedResult, ttl time.Duration)
	// Len reports the current entry count for health reporting; expired
	// entries not yet evicted may be included.
	Len() int
}

// Key builds the content-addressed cache key for one call. Parameters are
// canonicalized (sorted keys, stable scalar/array encoding) so equivalent
// calls collide regardless of map iteration order.
func Key(id providers.ID, capability providers.Capability, params providers.Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s", id, capability)
	for _, k := range keys {
		fmt.Fprintf(h, "\x00%s=", k)
		writeCanonical(h, params[k])
	}
	return fmt.Sprintf("omnisearch:%s:%s", id, hex.EncodeToString(h.Sum(nil)))
}

// writeCanonical emits a length-prefixed encoding so the byte stream is
// injective: a list can never encode to the same bytes as a scalar, and a
// list item containing a separator can never masquerade as two items.
func writeCanonical(h io.Writer, v any) {
	switch val := v.(type) {
	case []any:
		fmt.Fprintf(h, "l%d:", len(val))
		for _, item := range val {
			writeCanonical(h, item)
		}
	case []string:
		fmt.Fprintf(h, "l%d:", len(val))
		for _, item := range val {
			writeScalar(h, item)
		}
	default:
		writeScalar(h, val)
	}
}

func writeScalar(h io.Writer, v any) {
	s := fmt.Sprintf("%v", v)
	fmt.Fprintf(h, "s%d:%s", len(s), s)
}
