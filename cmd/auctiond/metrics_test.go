package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSummary(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrementCounter(MetricBidders, 3, nil)
	mc.IncrementCounter(MetricBidders, 2, nil)
	mc.SetGauge(MetricWinningAmount, 25, nil)
	mc.RecordProofGeneration(2 * time.Second)
	mc.RecordProofGeneration(4 * time.Second)
	mc.RecordError("prove")

	s := mc.GetMetricsSummary()
	assert.Equal(t, int64(5), s["counters"].(map[string]int64)[MetricBidders])
	assert.Equal(t, int64(1), s["counters"].(map[string]int64)["error_count_type_prove"])
	assert.Equal(t, 25.0, s["gauges"].(map[string]float64)[MetricWinningAmount])

	h := s["histograms"].(map[string]map[string]float64)[MetricProofTime]
	assert.Equal(t, 2.0, h["count"])
	assert.Equal(t, 3.0, h["avg"])
	assert.Equal(t, 4.0, h["max"])
}

func TestMetricKeyIsOrderIndependent(t *testing.T) {
	a := makeKey("m", map[string]string{"x": "1", "y": "2"})
	b := makeKey("m", map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b)

	mc := NewMetricsCollector()
	mc.SetGauge("m", 1, map[string]string{"x": "1", "y": "2"})
	assert.NotNil(t, mc.GetMetric("m", map[string]string{"y": "2", "x": "1"}))
}
