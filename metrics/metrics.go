// Package metrics exports scan counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "astrascan"

// Recorder receives scan events. Nop discards them.
type Recorder interface {
	ProbeStarted()
	ProbeFinished(hit bool, took time.Duration)
	HarvestFinished(channels int)
	HarvestAbandoned(reason string)
}

type Nop struct{}

func (Nop) ProbeStarted()                    {}
func (Nop) ProbeFinished(bool, time.Duration) {}
func (Nop) HarvestFinished(int)               {}
func (Nop) HarvestAbandoned(string)           {}

type Prometheus struct {
	registry *prometheus.Registry

	probesInFlight prometheus.Gauge
	probesTotal    *prometheus.CounterVec
	probeDuration  prometheus.Histogram
	harvestsTotal  *prometheus.CounterVec
	channelsTotal  prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	p := &Prometheus{
		registry: registry,
		probesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "in_flight",
			Help:      "Fingerprint probes currently holding a permit",
		}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "total",
			Help:      "Fingerprint probes by verdict",
		}, []string{"verdict"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Duration of fingerprint probes in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		harvestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "total",
			Help:      "Playlist harvests by outcome",
		}, []string{"outcome"}),
		channelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "channels_total",
			Help:      "Newly persisted working channels",
		}),
	}
	registry.MustRegister(p.probesInFlight, p.probesTotal, p.probeDuration, p.harvestsTotal, p.channelsTotal)
	registry.MustRegister(collectors.NewGoCollector())
	return p
}

func (p *Prometheus) ProbeStarted() {
	p.probesInFlight.Inc()
}

func (p *Prometheus) ProbeFinished(hit bool, took time.Duration) {
	p.probesInFlight.Dec()
	verdict := "miss"
	if hit {
		verdict = "hit"
	}
	p.probesTotal.WithLabelValues(verdict).Inc()
	p.probeDuration.Observe(took.Seconds())
}

func (p *Prometheus) HarvestFinished(channels int) {
	p.harvestsTotal.WithLabelValues("ok").Inc()
	p.channelsTotal.Add(float64(channels))
}

func (p *Prometheus) HarvestAbandoned(reason string) {
	p.harvestsTotal.WithLabelValues(reason).Inc()
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
