package metrics

import (
	"time"

	"github.com/saiset-co/sai-appstate/types"
)

// NewManager returns a prometheus-backed manager, or a no-op one when metrics are disabled.
func NewManager(logger types.Logger, config *types.MetricsConfig) types.MetricsManager {
	if config == nil || !config.Enabled {
		return NewNop()
	}

	return NewPrometheusMetrics(logger, config)
}

type nopMetrics struct{}

func NewNop() types.MetricsManager {
	return nopMetrics{}
}

func (nopMetrics) Counter(string, map[string]string) types.Counter {
	return nopCounter{}
}

func (nopMetrics) Histogram(string, []float64, map[string]string) types.Histogram {
	return nopHistogram{}
}

func (nopMetrics) GetMetrics() ([]types.MetricValue, error) {
	return nil, types.ErrMetricsIsDisabled
}

type nopCounter struct{}

func (nopCounter) Inc() {}
func (nopCounter) Add(float64) {}
func (nopCounter) Get() float64 { return 0 }

type nopHistogram struct{}

func (nopHistogram) Observe(float64) {}
func (nopHistogram) ObserveDuration(time.Time) {}
func (nopHistogram) GetCount() uint64 { return 0 }
func (nopHistogram) GetSum() float64 { return 0 }
