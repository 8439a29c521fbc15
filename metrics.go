/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts spinner activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	spinsTotal     prometheus.Counter
	spinsRejected  *prometheus.CounterVec
	assignments    prometheus.Counter
	namesAdded     prometheus.Counter
	groupsCreated  prometheus.Histogram
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "spinbox",
			Name:      "sessions_active",
			Help:      "Number of spinner sessions currently held in memory.",
		}),
		sessionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "spinbox",
			Name:      "sessions_created_total",
			Help:      "Total number of spinner sessions created.",
		}),
		spinsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "spinbox",
			Name:      "spins_total",
			Help:      "Total number of spins started.",
		}),
		spinsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spinbox",
			Name:      "spins_rejected_total",
			Help:      "Spin requests dropped, by reason.",
		}, []string{"reason"}),
		assignments: f.NewCounter(prometheus.CounterOpts{
			Namespace: "spinbox",
			Name:      "assignments_total",
			Help:      "Total number of names placed into a group by a spin.",
		}),
		namesAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "spinbox",
			Name:      "names_added_total",
			Help:      "Total number of names added to session pools.",
		}),
		groupsCreated: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spinbox",
			Name:      "groups_created",
			Help:      "Number of groups created per split.",
			Buckets:   prometheus.LinearBuckets(2, 2, 10),
		}),
	}
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) spinStarted() {
	if m == nil {
		return
	}
	m.spinsTotal.Inc()
}

func (m *Metrics) spinRejected(reason string) {
	if m == nil {
		return
	}
	m.spinsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) assigned() {
	if m == nil {
		return
	}
	m.assignments.Inc()
}

func (m *Metrics) added(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.namesAdded.Add(float64(n))
}

func (m *Metrics) groups(n int) {
	if m == nil {
		return
	}
	m.groupsCreated.Observe(float64(n))
}

func registerMetrics(cfg *Config, m *Metrics, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	cfg.logger.Debug("SERVE: Registered metrics handler", "path", cfg.prefix+"/metrics")
}
