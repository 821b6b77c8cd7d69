package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/types"
)

type PrometheusMetrics struct {
	logger     types.Logger
	config     *types.MetricsConfig
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.Mutex
}

func NewPrometheusMetrics(logger types.Logger, config *types.MetricsConfig) *PrometheusMetrics {
	return &PrometheusMetrics{
		logger:     logger,
		config:     config,
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusMetrics) Counter(name string, labels map[string]string) types.Counter {
	labelNames := getLabelNames(labels)
	key := buildKey(name, labelNames)

	p.mu.Lock()
	defer p.mu.Unlock()

	if counter, exists := p.counters[key]; exists {
		return &PrometheusCounter{logger: p.logger, counter: counter, labels: labels}
	}

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Name:        name,
			Help:        fmt.Sprintf("Counter metric %s", name),
			ConstLabels: p.config.Labels,
		},
		labelNames,
	)

	if err := p.registry.Register(counter); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			counter = existing.ExistingCollector.(*prometheus.CounterVec)
		} else {
			p.logger.Error("Failed to register counter", zap.String("name", name), zap.Error(err))
		}
	}
	p.counters[key] = counter

	return &PrometheusCounter{logger: p.logger, counter: counter, labels: labels}
}

func (p *PrometheusMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	labelNames := getLabelNames(labels)
	key := buildKey(name, labelNames)

	p.mu.Lock()
	defer p.mu.Unlock()

	if histogram, exists := p.histograms[key]; exists {
		return &PrometheusHistogram{logger: p.logger, histogram: histogram, labels: labels}
	}

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Name:        name,
			Help:        fmt.Sprintf("Histogram metric %s", name),
			Buckets:     buckets,
			ConstLabels: p.config.Labels,
		},
		labelNames,
	)

	if err := p.registry.Register(histogram); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			histogram = existing.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			p.logger.Error("Failed to register histogram", zap.String("name", name), zap.Error(err))
		}
	}
	p.histograms[key] = histogram

	return &PrometheusHistogram{logger: p.logger, histogram: histogram, labels: labels}
}

func (p *PrometheusMetrics) GetMetrics() ([]types.MetricValue, error) {
	gathering, err := p.registry.Gather()
	if err != nil {
		p.logger.Error("Failed to gather prometheus metrics", zap.Error(err))
		return nil, err
	}

	var metrics []types.MetricValue
	for _, mf := range gathering {
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, label := range m.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}

			var value float64
			switch {
			case m.Counter != nil:
				value = m.Counter.GetValue()
			case m.Histogram != nil:
				value = float64(m.Histogram.GetSampleCount())
			}

			metrics = append(metrics, types.MetricValue{
				Name:   mf.GetName(),
				Type:   strings.ToLower(mf.GetType().String()),
				Value:  value,
				Labels: labels,
			})
		}
	}

	return metrics, nil
}

func buildKey(name string, labelNames []string) string {
	return name + "{" + strings.Join(labelNames, ",") + "}"
}

func getLabelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type PrometheusCounter struct {
	logger  types.Logger
	counter *prometheus.CounterVec
	labels  map[string]string
}

func (c *PrometheusCounter) Inc() {
	c.counter.With(c.labels).Inc()
}

func (c *PrometheusCounter) Add(value float64) {
	c.counter.With(c.labels).Add(value)
}

func (c *PrometheusCounter) Get() float64 {
	metric := &dto.Metric{}
	if err := c.counter.With(c.labels).Write(metric); err != nil {
		c.logger.Error("Failed to write counter", zap.Error(err))
	}
	return metric.GetCounter().GetValue()
}

type PrometheusHistogram struct {
	logger    types.Logger
	histogram *prometheus.HistogramVec
	labels    map[string]string
}

func (h *PrometheusHistogram) Observe(value float64) {
	h.histogram.With(h.labels).Observe(value)
}

func (h *PrometheusHistogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

func (h *PrometheusHistogram) GetCount() uint64 {
	return h.write().GetHistogram().GetSampleCount()
}

func (h *PrometheusHistogram) GetSum() float64 {
	return h.write().GetHistogram().GetSampleSum()
}

func (h *PrometheusHistogram) write() *dto.Metric {
	metric := &dto.Metric{}
	observer, ok := h.histogram.With(h.labels).(prometheus.Metric)
	if !ok {
		return metric
	}
	if err := observer.Write(metric); err != nil {
		h.logger.Error("Failed to write histogram", zap.Error(err))
	}
	return metric
}
