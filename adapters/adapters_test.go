// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattermost/omnisearch/providers"
)

type mockLogger struct{}

func (mockLogger) Debug(string, ...any) {}
func (mockLogger) Warn(string, ...any)  {}

func TestTavilyAdapter(t *testing.T) {
	t.Run("successful search maps results and scores", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/search", r.URL.Path)
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "golang concurrency", body["query"])
			require.EqualValues(t, 3, body["max_results"])
			require.Equal(t, []any{"go.dev"}, body["include_domains"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"results":[
				{"title":"Share Memory By Communicating","url":"https://go.dev/blog/codelab-share","content":"Go blog","score":0.97},
				{"title":"Effective Go","url":"https://go.dev/doc/effective_go","content":"Concurrency section","score":0.85}
			]}`))
		}))
		defer server.Close()

		adapter := NewTavilyAdapter("test-key", server.URL, http.DefaultClient, mockLogger{})
		raw, err := adapter.Invoke(context.Background(), providers.Params{
			"query":           "golang concurrency",
			"limit":           3,
			"include_domains": []string{"go.dev"},
		})
		require.NoError(t, err)

		payload := raw.Payload.(map[string]any)
		results := payload["results"].([]any)
		require.Len(t, results, 2)
		first := results[0].(map[string]any)
		require.Equal(t, "Share Memory By Communicating", first["title"])
		require.Equal(t, "https://go.dev/blog/codelab-share", first["url"])
		require.InDelta(t, 0.97, first["score"].(float64), 1e-9)
	})

	t.Run("upstream error statuses surface for classification", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
		}))
		defer server.Close()

		adapter := NewTavilyAdapter("test-key", server.URL, http.DefaultClient, mockLogger{})
		_, err := adapter.Invoke(context.Background(), providers.Params{"query": "q"})
		require.Error(t, err)

		var upstream *providers.UpstreamError
		require.True(t, errors.As(err, &upstream))
		require.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
		require.Contains(t, upstream.Message, "rate limit exceeded")
	})
}

func TestBraveAdapter(t *testing.T) {
	t.Run("successful search", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/res/v1/web/search", r.URL.Path)
			require.Equal(t, "test-token", r.Header.Get("X-Subscription-Token"))
			require.Equal(t, "beaches in portugal", r.URL.Query().Get("q"))
			require.Equal(t, "5", r.URL.Query().Get("count"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"web":{"results":[
				{"title":"Best Beaches","url":"https://example.com/beaches","description":"A guide"}
			]}}`))
		}))
		defer server.Close()

		adapter := NewBraveAdapter("test-token", server.URL, http.DefaultClient, mockLogger{})
		raw, err := adapter.Invoke(context.Background(), providers.Params{"query": "beaches in portugal"})
		require.NoError(t, err)

		results := raw.Payload.(map[string]any)["results"].([]any)
		require.Len(t, results, 1)
		hit := results[0].(map[string]any)
		require.Equal(t, "Best Beaches", hit["title"])
		require.Equal(t, "A guide", hit["snippet"])
	})

	t.Run("limit is capped at the API maximum", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "20", r.URL.Query().Get("count"))
			_, _ = w.Write([]byte(`{"web":{"results":[]}}`))
		}))
		defer server.Close()

		adapter := NewBraveAdapter("test-token", server.URL, http.DefaultClient, mockLogger{})
		_, err := adapter.Invoke(context.Background(), providers.Params{"query": "q", "limit": 50})
		require.NoError(t, err)
	})
}

func TestPerplexityAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "sonar", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"content":"The capital of Portugal is Lisbon."}}],
			"citations":["https://en.wikipedia.org/wiki/Lisbon"]
		}`))
	}))
	defer server.Close()

	adapter := NewPerplexityAdapter("test-key", server.URL, http.DefaultClient, mockLogger{})
	raw, err := adapter.Invoke(context.Background(), providers.Params{"query": "capital of portugal"})
	require.NoError(t, err)

	payload := raw.Payload.(map[string]any)
	require.Equal(t, "The capital of Portugal is Lisbon.", payload["answer"])
	citations := payload["citations"].([]any)
	require.Len(t, citations, 1)
	require.Equal(t, "https://en.wikipedia.org/wiki/Lisbon", citations[0].(map[string]any)["url"])
}

func TestJinaReaderAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Contains(t, r.URL.String(), "example.com/article")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"title":"An Article","url":"https://example.com/article","content":"# An Article\n\nBody text."}}`))
	}))
	defer server.Close()

	adapter := NewJinaReaderAdapter("test-key", server.URL, http.DefaultClient, mockLogger{})
	raw, err := adapter.Invoke(context.Background(), providers.Params{"url": "https://example.com/article"})
	require.NoError(t, err)

	payload := raw.Payload.(map[string]any)
	require.Equal(t, "https://example.com/article", payload["url"])
	require.Contains(t, payload["content"].(string), "Body text.")
	require.Equal(t, "An Article", payload["metadata"].(map[string]any)["title"])
}

func TestJinaGroundingAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "water boils at 100C at sea level", body["statement"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{
			"factuality":0.95,"result":true,"reason":"Supported by multiple sources.",
			"references":[{"url":"https://example.com/boiling","keyQuote":"Water boils at 100 degrees Celsius"}]
		}}`))
	}))
	defer server.Close()

	adapter := NewJinaGroundingAdapter("test-key", server.URL, http.DefaultClient, mockLogger{})
	raw, err := adapter.Invoke(context.Background(), providers.Params{"content": "water boils at 100C at sea level"})
	require.NoError(t, err)

	payload := raw.Payload.(map[string]any)
	facts := payload["facts"].(map[string]any)
	require.Equal(t, "0.95", facts["factuality"])
	require.Equal(t, "true", facts["supported"])
	require.Equal(t, "Supported by multiple sources.", facts["reason"])
	sources := payload["sources"].([]any)
	require.Len(t, sources, 1)
}

func TestCatalog(t *testing.T) {
	entries := Catalog(mapSource{}, nil, mockLogger{})

	t.Run("every entry registers cleanly", func(t *testing.T) {
		registry, err := BuildRegistry(providers.EnabledSet{}, entries)
		require.NoError(t, err)
		require.Len(t, registry.Descriptors(), len(entries))
	})

	t.Run("every capability has at least one provider", func(t *testing.T) {
		byCapability := map[providers.Capability]int{}
		for _, entry := range entries {
			byCapability[entry.Descriptor.Capability]++
		}
		for _, capability := range providers.Capabilities() {
			require.Greater(t, byCapability[capability], 0, "capability %s has no providers", capability)
		}
	})

	t.Run("duckduckgo needs no credentials", func(t *testing.T) {
		for _, entry := range entries {
			if entry.Descriptor.ID == "duckduckgo" {
				require.Empty(t, entry.Descriptor.RequiredCredentials)
				return
			}
		}
		t.Fatal("duckduckgo not in catalog")
	})

	t.Run("every descriptor declares a request rate", func(t *testing.T) {
		for _, entry := range entries {
			require.Greater(t, entry.Descriptor.RatePerMinute, 0, "provider %s has no rate cap", entry.Descriptor.ID)
		}
	})
}

func TestCapCacheTTL(t *testing.T) {
	entries := Catalog(mapSource{}, nil, mockLogger{})

	t.Run("ceiling lowers long TTLs and keeps short ones", func(t *testing.T) {
		capped := Catalog(mapSource{}, nil, mockLogger{})
		CapCacheTTL(capped, 10*time.Minute)
		for i, entry := range capped {
			original := entries[i].Descriptor.CacheTTL
			if original > 10*time.Minute {
				require.Equal(t, 10*time.Minute, entry.Descriptor.CacheTTL, "provider %s", entry.Descriptor.ID)
			} else {
				require.Equal(t, original, entry.Descriptor.CacheTTL, "provider %s", entry.Descriptor.ID)
			}
		}
	})

	t.Run("zero leaves descriptors untouched", func(t *testing.T) {
		untouched := Catalog(mapSource{}, nil, mockLogger{})
		CapCacheTTL(untouched, 0)
		for i, entry := range untouched {
			require.Equal(t, entries[i].Descriptor.CacheTTL, entry.Descriptor.CacheTTL)
		}
	})
}

type mapSource map[string]string

func (m mapSource) Get(key string) string { return m[key] }
