package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusFactory is a MetricFactory that registers collectors with a
// Prometheus registerer. Dotted names become underscored metric names, so
// "carpark.sessions.opened" is exported as carpark_sessions_opened.
// Asking for the same name twice returns the same collector.
type PrometheusFactory struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPrometheusFactory creates a factory registering with reg. A nil reg
// uses the default registerer.
func NewPrometheusFactory(reg prometheus.Registerer) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusFactory{
		reg:        reg,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	c := promauto.With(f.reg).NewCounter(prometheus.CounterOpts{
		Name: metricName(name) + "_total",
		Help: "Total " + helpText(name),
	})
	f.counters[name] = c
	return c
}

// Gauge implements MetricFactory.
func (f *PrometheusFactory) Gauge(name string) Gauge {
	f.mu.Lock()
	defer f.mu.Unlock()

	if g, ok := f.gauges[name]; ok {
		return g
	}
	g := promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
		Name: metricName(name),
		Help: "Current " + helpText(name),
	})
	f.gauges[name] = g
	return g
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	h := promauto.With(f.reg).NewHistogram(prometheus.HistogramOpts{
		Name:    metricName(name),
		Help:    "Distribution of " + helpText(name),
		Buckets: bucketsFor(name),
	})
	f.histograms[name] = h
	return h
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

func helpText(name string) string {
	return strings.ReplaceAll(name, ".", " ")
}

// bucketsFor picks histogram buckets from the metric's unit suffix.
func bucketsFor(name string) []float64 {
	switch {
	case strings.HasSuffix(name, "_seconds"):
		// 5 minutes to 24 hours.
		return []float64{300, 900, 1800, 3600, 7200, 14400, 28800, 86400}
	case strings.HasSuffix(name, "_minor"):
		return prometheus.ExponentialBuckets(100, 2, 10)
	default:
		return prometheus.DefBuckets
	}
}
