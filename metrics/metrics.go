// Package metrics exposes sweep and device cycle outcomes to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"axiapac.com/punchsync/core"
)

const namespace = "punchsync"

type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	records       *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec
	watermark     prometheus.Gauge
	sweeps        *prometheus.CounterVec
	sweepDuration prometheus.Summary
}

// New registers the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "device_cycles_total",
		Help:      "Device cycles by final state and error category",
	}, []string{"device", "state", "category"})
	m.cycleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "device_cycle_duration_seconds",
		Help:      "Time spent in one device cycle",
		Buckets:   prometheus.DefBuckets,
	}, []string{"device"})
	m.records = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Punch records by pipeline stage",
	}, []string{"device", "stage"})
	m.lastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "device_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful cycle",
	}, []string{"device"})
	m.watermark = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "watermark_timestamp_seconds",
		Help:      "Current watermark as unix time",
	})
	m.sweeps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_total",
		Help:      "Completed sweeps by outcome",
	}, []string{"outcome"})
	m.sweepDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Time spent in one sweep",
	})

	m.registry.MustRegister(
		m.cycles, m.cycleDuration, m.records, m.lastSuccess, m.watermark, m.sweeps, m.sweepDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCycle(r core.CycleResult) {
	if m == nil {
		return
	}
	ip := r.Device.IP
	m.cycles.WithLabelValues(ip, string(r.State), core.Category(r.Err)).Inc()
	m.cycleDuration.WithLabelValues(ip).Observe(r.Duration.Seconds())
	m.records.WithLabelValues(ip, "fetched").Add(float64(r.Fetched))
	m.records.WithLabelValues(ip, "dropped").Add(float64(r.Dropped))
	m.records.WithLabelValues(ip, "kept").Add(float64(r.Kept))
	m.records.WithLabelValues(ip, "delivered").Add(float64(r.Delivered))
	if r.State == core.Succeeded {
		m.lastSuccess.WithLabelValues(ip).Set(float64(r.StartedAt.Add(r.Duration).Unix()))
	}
	if !r.Watermark.IsZero() {
		m.watermark.Set(float64(r.Watermark.Unix()))
	}
}

func (m *Metrics) ObserveSweep(s core.SweepSummary) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case s.Aborted:
		outcome = "aborted"
	case s.Failed() > 0:
		outcome = "partial"
	}
	m.sweeps.WithLabelValues(outcome).Inc()
	m.sweepDuration.Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())
}
