// metrics.go - Metrics collection for the auction prover
package main

import (
	"sort"
	"strings"
	"sync"
	"time"

	"sealedbid/internal/trace"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter   MetricType = "counter"
	Gauge     MetricType = "gauge"
	Histogram MetricType = "histogram"
)

// Metric represents a single metric
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// MetricsCollector manages metrics collection
type MetricsCollector struct {
	mu         sync.RWMutex
	metrics    map[string]*Metric
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:    make(map[string]*Metric),
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter adds delta to a counter metric
func (mc *MetricsCollector) IncrementCounter(name string, delta int64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	mc.counters[key] += delta
	mc.updateMetric(key, name, Counter, float64(mc.counters[key]), labels)
}

// SetGauge sets a gauge metric value
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	mc.gauges[key] = value
	mc.updateMetric(key, name, Gauge, value, labels)
}

// RecordHistogram records a value in a histogram
func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	values := append(mc.histograms[key], value)
	// keep the last 1000 samples
	if len(values) > 1000 {
		values = values[len(values)-1000:]
	}
	mc.histograms[key] = values
	mc.updateMetric(key, name, Histogram, value, labels)
}

// GetMetric retrieves a metric by name and labels
func (mc *MetricsCollector) GetMetric(name string, labels map[string]string) *Metric {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.metrics[makeKey(name, labels)]
}

// GetMetricsSummary returns a summary of all metrics
func (mc *MetricsCollector) GetMetricsSummary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	counters := make(map[string]int64, len(mc.counters))
	for key, v := range mc.counters {
		counters[key] = v
	}
	gauges := make(map[string]float64, len(mc.gauges))
	for key, v := range mc.gauges {
		gauges[key] = v
	}
	histograms := make(map[string]map[string]float64)
	for key, values := range mc.histograms {
		if len(values) == 0 {
			continue
		}
		h := map[string]float64{"count": float64(len(values)), "min": values[0], "max": values[0]}
		for _, v := range values {
			h["min"] = min(h["min"], v)
			h["max"] = max(h["max"], v)
			h["sum"] += v
		}
		h["avg"] = h["sum"] / h["count"]
		histograms[key] = h
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
	}
}

// makeKey creates a unique key for a metric name and labels
func makeKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteString("_" + k + "_" + labels[k])
	}
	return sb.String()
}

func (mc *MetricsCollector) updateMetric(key, name string, metricType MetricType, value float64, labels map[string]string) {
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      metricType,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Predefined metric names
const (
	MetricTraceTime      = "trace_generation_time"
	MetricCheckTime      = "constraint_check_time"
	MetricCompileTime    = "circuit_compile_time"
	MetricProofTime      = "proof_generation_time"
	MetricTraceRows      = "trace_rows"
	MetricTraceHeight    = "trace_height"
	MetricBidders        = "bidders"
	MetricErroredBidders = "errored_bidders"
	MetricWinningAmount  = "winning_amount"
	MetricErrorCount     = "error_count"
)

// RecordTrace records the shape and outcome of a generated trace.
func (mc *MetricsCollector) RecordTrace(tr *trace.Trace, took time.Duration) {
	mc.RecordHistogram(MetricTraceTime, took.Seconds(), nil)
	mc.SetGauge(MetricTraceRows, float64(tr.Rows), nil)
	mc.SetGauge(MetricTraceHeight, float64(tr.Matrix.Height()), nil)

	outcomes := tr.Outcomes()
	var errored int64
	for _, o := range outcomes {
		if o.Errored {
			errored++
		}
	}
	mc.IncrementCounter(MetricBidders, int64(len(outcomes)), nil)
	mc.IncrementCounter(MetricErroredBidders, errored, nil)
	_, amount := tr.Winner()
	mc.SetGauge(MetricWinningAmount, float64(amount), nil)
}

func (mc *MetricsCollector) RecordCheck(duration time.Duration) {
	mc.RecordHistogram(MetricCheckTime, duration.Seconds(), nil)
}

func (mc *MetricsCollector) RecordCircuitCompile(duration time.Duration) {
	mc.RecordHistogram(MetricCompileTime, duration.Seconds(), nil)
}

func (mc *MetricsCollector) RecordProofGeneration(duration time.Duration) {
	mc.RecordHistogram(MetricProofTime, duration.Seconds(), nil)
}

func (mc *MetricsCollector) RecordError(errorType string) {
	mc.IncrementCounter(MetricErrorCount, 1, map[string]string{"type": errorType})
}
