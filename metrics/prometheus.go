package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusObserver exposes recorded events as Prometheus series: a counter
// per event name and a latency histogram for millisecond events.
type PrometheusObserver struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	values   *prometheus.GaugeVec
}

// NewPrometheusObserver registers the voixagent series on a new registry,
// together with the Go runtime and process collectors.
func NewPrometheusObserver(namespace string) *PrometheusObserver {
	if namespace == "" {
		namespace = "voixagent"
	}
	o := &PrometheusObserver{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Recorded metric events by name.",
		}, []string{"name"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "latency_milliseconds",
			Help:      "Latency events in milliseconds by name.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"name"}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_last_value",
			Help:      "Last recorded value of non-latency events by name.",
		}, []string{"name", "unit"}),
	}
	o.registry.MustRegister(
		o.events, o.latency, o.values,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

func (o *PrometheusObserver) Name() string { return "prometheus" }

// Observe updates the series for e.
func (o *PrometheusObserver) Observe(_ context.Context, e Event) error {
	o.events.WithLabelValues(e.Name).Inc()
	if e.Unit == UnitMilliseconds {
		o.latency.WithLabelValues(e.Name).Observe(e.Value)
		return nil
	}
	o.values.WithLabelValues(e.Name, e.Unit).Set(e.Value)
	return nil
}

// Registry returns the underlying registry.
func (o *PrometheusObserver) Registry() *prometheus.Registry { return o.registry }

// Handler serves the exposition format.
func (o *PrometheusObserver) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
