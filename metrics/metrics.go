// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	MetricsNamespace         = "omnisearch"
	MetricsSubsystemSystem   = "system"
	MetricsSubsystemDispatch = "dispatch"
	MetricsSubsystemProvider = "provider"
	MetricsSubsystemCache    = "cache"

	MetricsVersionLabel = "version"
)

type Metrics interface {
	GetRegistry() *prometheus.Registry

	ObserveProviderCall(provider string, elapsedSeconds float64)
	IncrementProviderRetries(provider string)
	IncrementDispatchOutcome(kind string)

	IncrementCacheHits()
	IncrementCacheMisses()
}

// metrics used to instrumentate metrics in prometheus.
type metrics struct {
	registry *prometheus.Registry

	serverStartTime prometheus.Gauge
	serverInfo      prometheus.Gauge

	providerCallTime     *prometheus.HistogramVec
	providerRetriesTotal *prometheus.CounterVec

	dispatchOutcomesTotal *prometheus.CounterVec

	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
}

// NewMetrics Factory method to create a new metrics collector.
func NewMetrics(version string) Metrics {
	m := &metrics{}

	m.registry = prometheus.NewRegistry()
	options := collectors.ProcessCollectorOpts{
		Namespace: MetricsNamespace,
	}
	m.registry.MustRegister(collectors.NewProcessCollector(options))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.serverStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemSystem,
		Name:      "server_start_timestamp_seconds",
		Help:      "The time the server started.",
	})
	m.serverStartTime.SetToCurrentTime()
	m.registry.MustRegister(m.serverStartTime)

	m.serverInfo = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemSystem,
		Name:      "server_info",
		Help:      "The server version.",
		ConstLabels: map[string]string{
			MetricsVersionLabel: version,
		},
	})
	m.serverInfo.Set(1)
	m.registry.MustRegister(m.serverInfo)

	m.providerCallTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystemProvider,
			Name:      "call_time_seconds",
			Help:      "Time to complete one provider invocation including retries.",
		},
		[]string{"provider"},
	)
	m.registry.MustRegister(m.providerCallTime)

	m.providerRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemProvider,
		Name:      "retries_total",
		Help:      "The total number of retried provider attempts.",
	}, []string{"provider"})
	m.registry.MustRegister(m.providerRetriesTotal)

	m.dispatchOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemDispatch,
		Name:      "outcomes_total",
		Help:      "The total number of dispatched tool calls by outcome kind.",
	}, []string{"kind"})
	m.registry.MustRegister(m.dispatchOutcomesTotal)

	m.cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemCache,
		Name:      "hits_total",
		Help:      "The total number of result cache hits.",
	})
	m.registry.MustRegister(m.cacheHitsTotal)

	m.cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemCache,
		Name:      "misses_total",
		Help:      "The total number of result cache misses.",
	})
	m.registry.MustRegister(m.cacheMissesTotal)

	return m
}

func (m *metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *metrics) ObserveProviderCall(provider string, elapsedSeconds float64) {
	m.providerCallTime.With(prometheus.Labels{"provider": provider}).Observe(elapsedSeconds)
}

func (m *metrics) IncrementProviderRetries(provider string) {
	m.providerRetriesTotal.With(prometheus.Labels{"provider": provider}).Inc()
}

func (m *metrics) IncrementDispatchOutcome(kind string) {
	m.dispatchOutcomesTotal.With(prometheus.Labels{"kind": kind}).Inc()
}

func (m *metrics) IncrementCacheHits() {
	m.cacheHitsTotal.Inc()
}

func (m *metrics) IncrementCacheMisses() {
	m.cacheMissesTotal.Inc()
}
