// Package metrics exposes Prometheus collectors for CSV imports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values for ImportsTotal.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type Collector struct {
	reg *prometheus.Registry

	ImportsTotal  *prometheus.CounterVec // labels: format, status
	StopsImported prometheus.Counter
	ActiveImports prometheus.Gauge
	ParseDuration prometheus.Histogram
	BytesRead     prometheus.Histogram
}

// NewCollector registers all collectors on a private registry, so several
// collectors can coexist in tests.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ImportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripimport_imports_total",
			Help: "CSV imports by detected format and outcome.",
		}, []string{"format", "status"}),
		StopsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripimport_stops_imported_total",
			Help: "Stops produced by successful imports.",
		}),
		ActiveImports: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripimport_active_imports",
			Help: "Imports currently being parsed.",
		}),
		ParseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripimport_parse_duration_seconds",
			Help:    "Time spent parsing one CSV file.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		BytesRead: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripimport_file_bytes",
			Help:    "Size of imported CSV files in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}),
	}

	reg.MustRegister(
		c.ImportsTotal, c.StopsImported, c.ActiveImports,
		c.ParseDuration, c.BytesRead,
	)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
