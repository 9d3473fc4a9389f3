package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	itemsInterned   prometheus.Counter
	itemsLinked     prometheus.Counter
	itemsRemoved    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyst_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analyst_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		itemsInterned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_list_items_interned_total",
			Help: "Addresses stored for the first time",
		}),
		itemsLinked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_list_items_linked_total",
			Help: "Addresses newly attached to a list",
		}),
		itemsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyst_list_items_removed_total",
			Help: "Addresses detached from a list",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.itemsInterned,
		m.itemsLinked,
		m.itemsRemoved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveMembership(interned, linked int) {
	m.itemsInterned.Add(float64(interned))
	m.itemsLinked.Add(float64(linked))
}

func (m *Metrics) ObserveRemoval(removed int64) {
	m.itemsRemoved.Add(float64(removed))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server returns the HTTP server exposing /metrics on port.
func (m *Metrics) Server(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
