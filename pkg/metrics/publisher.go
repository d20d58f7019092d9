package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics tracks outbox relay throughput per event type.
type PublisherMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Time spent publishing one outbox event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_success_total",
		Help: "Outbox events delivered to Pub/Sub.",
	}, []string{"event_type"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failure_total",
		Help: "Outbox events that failed to publish.",
	}, []string{"event_type"})
	reg.MustRegister(duration, success, failure)
	return &PublisherMetrics{duration: duration, success: success, failure: failure}
}

func (p *PublisherMetrics) Observe(eventType string, elapsed time.Duration, err error) {
	if p == nil || p.duration == nil {
		return
	}
	eventType = normalizeLabel(eventType)
	p.duration.WithLabelValues(eventType).Observe(elapsed.Seconds())
	if err != nil {
		p.failure.WithLabelValues(eventType).Inc()
		return
	}
	p.success.WithLabelValues(eventType).Inc()
}
