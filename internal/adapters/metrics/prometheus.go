// Package metrics exports catalog operation outcomes to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts operations and their durations on its own registry so
// several instances can coexist in one process.
type Recorder struct {
	registry  *prometheus.Registry
	total     *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gprcatalog",
			Name:      "operations_total",
			Help:      "Catalog operations by name and outcome.",
		}, []string{"operation", "success"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gprcatalog",
			Name:      "operation_duration_seconds",
			Help:      "Catalog operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(
		r.total,
		r.durations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.total.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
