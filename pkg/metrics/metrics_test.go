package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)

	m.ObserveRequest("GET", "/movies/{id}/", 200, 20*time.Millisecond)
	m.ObserveRequest("GET", "/movies/{id}/", 200, 10*time.Millisecond)
	m.OrderPlaced(3)
	m.VoteCast("created")
	m.VoteCast("changed")
	m.VoteCast("changed")
	m.ReviewReported()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "moviestore_http_requests_total", "route", "/movies/{id}/")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	sum, err := fetchHistogramSum(mfs, "moviestore_http_request_duration_seconds", "method", "GET")
	require.NoError(t, err)
	assert.InDelta(t, 0.03, sum, 0.0001)

	got, err = fetchCounterValue(mfs, "moviestore_petition_votes_total", "outcome", "changed")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	orders := findMetricFamily(mfs, "moviestore_orders_placed_total")
	require.NotNil(t, orders)
	assert.Equal(t, 1.0, orders.GetMetric()[0].GetCounter().GetValue())

	items := findMetricFamily(mfs, "moviestore_order_items_total")
	require.NotNil(t, items)
	assert.Equal(t, 3.0, items.GetMetric()[0].GetCounter().GetValue())
}

func TestPublisherMetricsSplitsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPublisherMetrics(reg)

	m.Observe("order_placed", 5*time.Millisecond, nil)
	m.Observe("order_placed", 5*time.Millisecond, errors.New("unavailable"))
	m.Observe("", time.Millisecond, nil)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "outbox_publish_success_total", "event_type", "order_placed")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "outbox_publish_failure_total", "event_type", "order_placed")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "outbox_publish_success_total", "event_type", "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestNilRegistererIsNoop(t *testing.T) {
	var store *StoreMetrics
	store.ObserveRequest("GET", "/", 200, time.Millisecond)
	NewStoreMetrics(nil).OrderPlaced(1)
	NewPublisherMetrics(nil).Observe("x", time.Millisecond, nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
