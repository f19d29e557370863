// Package metrics exposes engine counters in the Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logicdev"

// Metrics owns a private registry so several worlds (and tests) never share
// collectors.
type Metrics struct {
	reg *prometheus.Registry

	linkResults  *prometheus.CounterVec
	activations  *prometheus.CounterVec
	tickFailures *prometheus.CounterVec
	devices      prometheus.Gauge
	tick         prometheus.Gauge
}

func New(worldID string) *Metrics {
	labels := prometheus.Labels{"world": worldID}
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		linkResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "link_results_total",
			Help:        "Link trigger outcomes by mode and result.",
			ConstLabels: labels,
		}, []string{"mode", "result"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "device_activations_total",
			Help:        "Accepted device activations by activation policy.",
			ConstLabels: labels,
		}, []string{"policy"}),
		tickFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tick_failures_total",
			Help:        "Device ticks that failed and were isolated, by type.",
			ConstLabels: labels,
		}, []string{"type"}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "devices",
			Help:        "Placed device instances.",
			ConstLabels: labels,
		}),
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "tick",
			Help:        "Last executed world tick.",
			ConstLabels: labels,
		}),
	}
	m.reg.MustRegister(m.linkResults, m.activations, m.tickFailures, m.devices, m.tick)
	m.reg.MustRegister(collectors.NewGoCollector())
	return m
}

func (m *Metrics) Activation(policy string)       { m.activations.WithLabelValues(policy).Inc() }
func (m *Metrics) LinkResult(mode, result string) { m.linkResults.WithLabelValues(mode, result).Inc() }
func (m *Metrics) TickFailure(typeID string)      { m.tickFailures.WithLabelValues(typeID).Inc() }
func (m *Metrics) SetDevices(n int)               { m.devices.Set(float64(n)) }
func (m *Metrics) SetTick(tick uint64)            { m.tick.Set(float64(tick)) }

// Gauge registers a gauge sampled from fn at scrape time, e.g. queue depths
// of the index writer or the observer hub.
func (m *Metrics) Gauge(name, help string, fn func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
