// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package httpapi serves the operational HTTP surface: health checks,
// Prometheus metrics, and the streamable MCP endpoint.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattermost/omnisearch/cache"
	loggerlib "github.com/mattermost/omnisearch/mcpserver/logger"
	"github.com/mattermost/omnisearch/metrics"
	"github.com/mattermost/omnisearch/providers"
	"github.com/mattermost/omnisearch/resilience"
)

// Server hosts the operational endpoints alongside the MCP handler.
type Server struct {
	registry   *providers.Registry
	executor   *resilience.Executor
	store      cache.Store
	metrics    metrics.Metrics
	logger     loggerlib.Logger
	version    string
	startedAt  time.Time
	httpServer *http.Server
}

// ProviderStatus is one provider's entry in the health report.
type ProviderStatus struct {
	ID         string `json:"id"`
	Capability string `json:"capability"`
	Enabled    bool   `json:"enabled"`
	Breaker    string `json:"breaker"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status        string           `json:"status"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Providers     []ProviderStatus `json:"providers"`
	CacheEntries  int              `json:"cache_entries"`
}

// New creates the HTTP server. mcpHandler may be nil to serve only the
// operational endpoints; store may be nil when caching is disabled.
func New(addr string, registry *providers.Registry, executor *resilience.Executor, store cache.Store, m metrics.Metrics, mcpHandler http.Handler, version string, logger loggerlib.Logger) *Server {
	if logger == nil {
		logger = loggerlib.NewNop()
	}

	s := &Server{
		registry:  registry,
		executor:  executor,
		store:     store,
		metrics:   m,
		logger:    logger,
		version:   version,
		startedAt: time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	if m != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.GetRegistry(), promhttp.HandlerOpts{})))
	}
	if mcpHandler != nil {
		router.Any("/mcp", gin.WrapH(mcpHandler))
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	return s
}

// Serve blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Serve() error {
	s.logger.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the configured HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(c *gin.Context) {
	statuses := []ProviderStatus{}
	enabledCount := 0
	for _, desc := range s.registry.Descriptors() {
		ok := s.registry.Enabled().Has(desc.ID)
		if ok {
			enabledCount++
		}
		statuses = append(statuses, ProviderStatus{
			ID:         string(desc.ID),
			Capability: string(desc.Capability),
			Enabled:    ok,
			Breaker:    string(s.executor.BreakerState(desc.ID)),
		})
	}

	status := "ok"
	if enabledCount == 0 {
		status = "degraded"
	}

	entries := 0
	if s.store != nil {
		entries = s.store.Len()
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:        status,
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Providers:     statuses,
		CacheEntries:  entries,
	})
}
