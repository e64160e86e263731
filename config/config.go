// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package config

import (
	"time"

	"github.com/spf13/cast"
)

// Settings keys recognized beyond provider credentials.
const (
	KeyCacheEnabled    = "OMNISEARCH_CACHE_ENABLED"
	KeyCacheMaxEntries = "OMNISEARCH_CACHE_MAX_ENTRIES"
	KeyCacheTTL        = "OMNISEARCH_CACHE_TTL_SECONDS"
	KeyCacheDSN        = "OMNISEARCH_CACHE_DATABASE_DSN"
	KeyHTTPListenAddr  = "OMNISEARCH_HTTP_LISTEN"
	KeyLogLevel        = "OMNISEARCH_LOG_LEVEL"
	KeyLogJSON         = "OMNISEARCH_LOG_JSON"
)

// Config holds the non-credential process settings, read once at startup.
type Config struct {
	CacheEnabled    bool
	CacheMaxEntries int
	// CacheTTL, when positive, is a ceiling applied to every provider's
	// cache TTL at startup. Zero leaves per-provider TTLs untouched.
	CacheTTL time.Duration
	// CacheDSN switches the result cache to the Postgres backend when set.
	CacheDSN       string
	HTTPListenAddr string
	LogLevel       string
	LogJSON        bool
}

// Load reads settings from the source, applying defaults that mirror a
// small single-process deployment.
func Load(src Source) Config {
	cfg := Config{
		CacheEnabled:    true,
		CacheMaxEntries: 1000,
		HTTPListenAddr:  "127.0.0.1:3200",
		LogLevel:        "info",
	}
	if v := src.Get(KeyCacheEnabled); v != "" {
		cfg.CacheEnabled = cast.ToBool(v)
	}
	if v := src.Get(KeyCacheMaxEntries); v != "" {
		if n := cast.ToInt(v); n > 0 {
			cfg.CacheMaxEntries = n
		}
	}
	if v := src.Get(KeyCacheTTL); v != "" {
		if secs := cast.ToInt(v); secs > 0 {
			cfg.CacheTTL = time.Duration(secs) * time.Second
		}
	}
	cfg.CacheDSN = src.Get(KeyCacheDSN)
	if v := src.Get(KeyHTTPListenAddr); v != "" {
		cfg.HTTPListenAddr = v
	}
	if v := src.Get(KeyLogLevel); v != "" {
		cfg.LogLevel = v
	}
	cfg.LogJSON = cast.ToBool(src.Get(KeyLogJSON))
	return cfg
}
