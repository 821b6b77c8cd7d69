package types

import (
	"time"
)

type MetricsManager interface {
	Counter(name string, labels map[string]string) Counter
	Histogram(name string, buckets []float64, labels map[string]string) Histogram
	GetMetrics() ([]MetricValue, error)
}

type Counter interface {
	Inc()
	Add(value float64)
	Get() float64
}

type Histogram interface {
	Observe(value float64)
	ObserveDuration(start time.Time)
	GetCount() uint64
	GetSum() float64
}

type MetricValue struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels"`
}
