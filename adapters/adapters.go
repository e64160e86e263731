// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package adapters holds the per-provider translations between the
// normalized parameter mapping and each service's native HTTP protocol.
// Adapters are deliberately narrow: build one request, decode one response,
// emit the capability's conventional payload. They never retry; that is the
// resilience layer's job.
package adapters

import (
	"bytes"
	"context"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/mattermost/omnisearch/providers"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Logger abstracts the logging interface used by adapters.
type Logger interface {
	Debug(message string, keyValuePairs ...any)
	Warn(message string, keyValuePairs ...any)
}

// doJSON executes a prepared request and decodes a JSON body into out.
// Non-2xx statuses become UpstreamError for the classifier; the body is
// carried as the message so callers get the provider's own wording.
func doJSON(client *http.Client, req *http.Request, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Wrap(err, "failed to read provider response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &providers.UpstreamError{StatusCode: resp.StatusCode, Message: truncate(string(body), 512)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to decode provider response")
	}
	return nil
}

// newJSONRequest builds a POST request with a JSON body.
func newJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request body")
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// searchHit is the conventional search payload entry every search adapter
// emits for the normalizer.
func searchHit(title, url, snippet string, score *float64) map[string]any {
	hit := map[string]any{
		"title":   title,
		"url":     url,
		"snippet": snippet,
	}
	if score != nil {
		hit["score"] = *score
	}
	return hit
}

func searchPayload(hits []map[string]any) *providers.RawResult {
	items := make([]any, len(hits))
	for i := range hits {
		items[i] = hits[i]
	}
	return &providers.RawResult{Payload: map[string]any{"results": items}}
}
