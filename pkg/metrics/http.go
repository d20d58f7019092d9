package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records web traffic and storefront business events.
type StoreMetrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	ordersPlaced prometheus.Counter
	itemsSold    prometheus.Counter
	votes        *prometheus.CounterVec
	reports      prometheus.Counter
}

// NewStoreMetrics registers the storefront metrics on reg. A nil registerer
// yields a no-op recorder.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	m := &StoreMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviestore_http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moviestore_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moviestore_orders_placed_total",
			Help: "Orders created at checkout.",
		}),
		itemsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moviestore_order_items_total",
			Help: "Order lines created at checkout.",
		}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviestore_petition_votes_total",
			Help: "Petition votes by outcome.",
		}, []string{"outcome"}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moviestore_review_reports_total",
			Help: "Review reports recorded.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.ordersPlaced, m.itemsSold, m.votes, m.reports)
	return m
}

// ObserveRequest records one completed request.
func (m *StoreMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *StoreMetrics) OrderPlaced(lines int) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.itemsSold.Add(float64(lines))
}

func (m *StoreMetrics) VoteCast(outcome string) {
	if m == nil || m.votes == nil {
		return
	}
	m.votes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *StoreMetrics) ReviewReported() {
	if m == nil || m.reports == nil {
		return
	}
	m.reports.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
