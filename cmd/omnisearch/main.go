// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mattermost/omnisearch/adapters"
	"github.com/mattermost/omnisearch/cache"
	"github.com/mattermost/omnisearch/config"
	"github.com/mattermost/omnisearch/dispatcher"
	"github.com/mattermost/omnisearch/httpapi"
	"github.com/mattermost/omnisearch/mcpserver"
	loggerlib "github.com/mattermost/omnisearch/mcpserver/logger"
	"github.com/mattermost/omnisearch/metrics"
	"github.com/mattermost/omnisearch/resilience"
)

const version = "0.1.0"

var (
	transport string
	httpAddr  string
	envFile   string
	debug     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "omnisearch",
		Short: "Omnisearch Model Context Protocol (MCP) Server",
		Long: `A Model Context Protocol (MCP) server that unifies web search, AI answers,
content extraction, and content enrichment behind one tool endpoint.

Providers are enabled by the credentials present in the environment; a
provider whose API key is missing stays registered but disabled. Run with
no credentials at all and only the keyless providers are available.`,
		Version: version,
		RunE:    runServer,
	}

	rootCmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type (stdio or http)")
	rootCmd.Flags().StringVar(&httpAddr, "http-addr", "", "Listen address for HTTP transport (overrides OMNISEARCH_HTTP_LISTEN)")
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "Path to a .env file to load before reading the environment")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	src := config.EnvSource{}
	cfg := config.Load(src)
	if debug {
		cfg.LogLevel = "debug"
	}
	if httpAddr != "" {
		cfg.HTTPListenAddr = httpAddr
	}

	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("invalid transport type: %s (supported types: 'stdio', 'http')", transport)
	}

	// On stdio the protocol owns stdout, so logs always go to stderr.
	logger := loggerlib.New(cfg.LogLevel, cfg.LogJSON, os.Stderr)

	entries := adapters.Catalog(src, nil, logger)
	adapters.CapCacheTTL(entries, cfg.CacheTTL)
	descriptors := adapters.Descriptors(entries)

	enabled := config.Probe(src, descriptors)
	registry, err := adapters.BuildRegistry(enabled, entries)
	if err != nil {
		return fmt.Errorf("failed to build provider registry: %w", err)
	}

	enabledIDs := make([]string, 0, len(enabled))
	for _, desc := range registry.Descriptors() {
		if enabled.Has(desc.ID) {
			enabledIDs = append(enabledIDs, string(desc.ID))
		}
	}
	logger.Info("Probed provider credentials",
		"enabled", strings.Join(enabledIDs, ","),
		"total", len(descriptors))

	executor := resilience.NewExecutor(descriptors, resilience.Options{Logger: logger})
	m := metrics.NewMetrics(version)

	var store cache.Store
	var pgStore *cache.PGStore
	if cfg.CacheEnabled {
		if cfg.CacheDSN != "" {
			pgStore, err = cache.NewPGStore(cfg.CacheDSN, logger)
			if err != nil {
				// A broken cache backend degrades to no caching instead of
				// refusing to start.
				logger.Error("Failed to connect result cache, caching disabled", "error", err)
			} else {
				store = pgStore
			}
		} else {
			store = cache.NewMemoryStore(cfg.CacheMaxEntries)
		}
	}

	d := dispatcher.New(registry, executor, store, m, logger)
	server := mcpserver.New(d, version, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if pgStore != nil {
		defer pgStore.Close()
		go purgeExpiredLoop(ctx, pgStore)
	}

	switch transport {
	case "stdio":
		if err := server.ServeStdio(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("stdio server failed: %w", err)
		}
	case "http":
		api := httpapi.New(cfg.HTTPListenAddr, registry, executor, store, m, server.HTTPHandler(), version, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- api.Serve()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server failed: %w", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := api.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP server shutdown incomplete", "error", err)
			}
		}
	}

	logger.Info("Server stopped")
	return nil
}

// purgeExpiredLoop clears expired rows from the Postgres cache backend so
// the table does not grow unbounded between restarts.
func purgeExpiredLoop(ctx context.Context, store *cache.PGStore) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.PurgeExpired(ctx)
		}
	}
}
