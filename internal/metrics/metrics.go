package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/air-quality-etl/internal/airquality"
)

// Metrics records pipeline tick outcomes.
type Metrics struct {
	registry *prometheus.Registry

	ticksTotal      *prometheus.CounterVec
	tickDuration    prometheus.Histogram
	readingsStored  prometheus.Counter
	alertsStored    prometheus.Counter
	publishFailures prometheus.Counter
	lastSuccess     prometheus.Gauge
}

// New builds the collectors on a dedicated registry, alongside the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ticksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aq_ticks_total",
			Help: "Pipeline ticks by outcome and failing stage.",
		}, []string{"outcome", "stage"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aq_tick_duration_seconds",
			Help:    "Wall time of a pipeline tick.",
			Buckets: prometheus.DefBuckets,
		}),
		readingsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aq_readings_stored_total",
			Help: "Sensor readings committed to the sink.",
		}),
		alertsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aq_alerts_stored_total",
			Help: "AQI spike alerts committed to the sink.",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aq_alert_publish_failures_total",
			Help: "Committed alert batches that could not be published.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aq_last_success_timestamp_seconds",
			Help: "Unix time of the last successful tick.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticksTotal,
		m.tickDuration,
		m.readingsStored,
		m.alertsStored,
		m.publishFailures,
		m.lastSuccess,
	)
	return m
}

// RecordTick implements airquality.TickRecorder.
func (m *Metrics) RecordTick(res airquality.TickResult) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(res.Duration().Seconds())
	if !res.Succeeded() {
		m.ticksTotal.WithLabelValues("failed", string(res.Stage)).Inc()
		return
	}
	m.ticksTotal.WithLabelValues("succeeded", "").Inc()
	m.readingsStored.Add(float64(res.Loaded.Readings))
	m.alertsStored.Add(float64(res.Loaded.Alerts))
	m.lastSuccess.Set(float64(res.FinishedAt.Unix()))
}

// RecordPublishFailure implements airquality.TickRecorder.
func (m *Metrics) RecordPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ airquality.TickRecorder = (*Metrics)(nil)
