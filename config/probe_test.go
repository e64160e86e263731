// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattermost/omnisearch/providers"
)

func descriptorWithCreds(id providers.ID, keys ...string) providers.Descriptor {
	return providers.Descriptor{
		ID:                  id,
		Capability:          providers.CapabilityAnswer,
		RequiredCredentials: keys,
		Timeout:             time.Second,
	}
}

func TestProbe(t *testing.T) {
	descriptors := []providers.Descriptor{
		descriptorWithCreds("tavily", "TAVILY_API_KEY"),
		descriptorWithCreds("google", "GOOGLE_API_KEY", "GOOGLE_SEARCH_ENGINE_ID"),
		descriptorWithCreds("duckduckgo"),
	}

	t.Run("provider enabled only when every key is present", func(t *testing.T) {
		enabled := Probe(MapSource{
			"TAVILY_API_KEY": "tvly-abc",
			"GOOGLE_API_KEY": "g-key",
			// GOOGLE_SEARCH_ENGINE_ID missing
		}, descriptors)

		require.True(t, enabled.Has("tavily"))
		require.False(t, enabled.Has("google"))
		require.True(t, enabled.Has("duckduckgo"), "credential-free providers are always enabled")
	})

	t.Run("empty values count as missing", func(t *testing.T) {
		enabled := Probe(MapSource{"TAVILY_API_KEY": ""}, descriptors)
		require.False(t, enabled.Has("tavily"))
	})

	t.Run("probe never enables unknown identities", func(t *testing.T) {
		enabled := Probe(MapSource{"TAVILY_API_KEY": "x"}, descriptors)
		require.False(t, enabled.Has("brave"))
		require.Len(t, enabled, 2)
	})
}

func TestMissingCredentials(t *testing.T) {
	desc := descriptorWithCreds("google", "GOOGLE_API_KEY", "GOOGLE_SEARCH_ENGINE_ID")

	missing := MissingCredentials(MapSource{}, desc)
	require.Equal(t, []string{"GOOGLE_API_KEY", "GOOGLE_SEARCH_ENGINE_ID"}, missing)

	missing = MissingCredentials(MapSource{"GOOGLE_API_KEY": "k"}, desc)
	require.Equal(t, []string{"GOOGLE_SEARCH_ENGINE_ID"}, missing)

	require.Empty(t, MissingCredentials(MapSource{"GOOGLE_API_KEY": "k", "GOOGLE_SEARCH_ENGINE_ID": "id"}, desc))
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := Load(MapSource{})
		require.True(t, cfg.CacheEnabled)
		require.Equal(t, 1000, cfg.CacheMaxEntries)
		require.Zero(t, cfg.CacheTTL, "no TTL ceiling unless configured")
		require.Equal(t, "127.0.0.1:3200", cfg.HTTPListenAddr)
		require.Equal(t, "info", cfg.LogLevel)
		require.False(t, cfg.LogJSON)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := Load(MapSource{
			KeyCacheEnabled:    "false",
			KeyCacheMaxEntries: "50",
			KeyCacheTTL:        "120",
			KeyCacheDSN:        "postgres://localhost/omnisearch",
			KeyHTTPListenAddr:  "0.0.0.0:8080",
			KeyLogLevel:        "debug",
			KeyLogJSON:         "true",
		})
		require.False(t, cfg.CacheEnabled)
		require.Equal(t, 50, cfg.CacheMaxEntries)
		require.Equal(t, 2*time.Minute, cfg.CacheTTL)
		require.Equal(t, "postgres://localhost/omnisearch", cfg.CacheDSN)
		require.Equal(t, "0.0.0.0:8080", cfg.HTTPListenAddr)
		require.Equal(t, "debug", cfg.LogLevel)
		require.True(t, cfg.LogJSON)
	})

	t.Run("invalid numbers keep defaults", func(t *testing.T) {
		cfg := Load(MapSource{
			KeyCacheMaxEntries: "-5",
			KeyCacheTTL:        "-1",
		})
		require.Equal(t, 1000, cfg.CacheMaxEntries)
		require.Zero(t, cfg.CacheTTL)
	})
}
