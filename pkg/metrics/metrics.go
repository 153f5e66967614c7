// Package metrics records gtminspect activity as Prometheus metrics.
//
// # Basic Usage
//
//	collector := metrics.New(prometheus.DefaultRegisterer)
//
//	timer := metrics.NewTimer("inspect")
//	result := flatten.Run(ws)
//	collector.ObserveInspection(metrics.ResultOK, result.Stats, timer.Stop())
//
// # Metric Types
//
// Counter: documents inspected, rows produced, unresolved trigger references,
// filters with missing operands, reports exported.
// Histogram: inspection and export latency in seconds.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/gtminspect/pkg/flatten"
)

// Namespace prefixes every metric name.
const Namespace = "gtminspect"

// Inspection results used as the "result" label.
const (
	ResultOK        = "ok"
	ResultMalformed = "malformed"
	ResultTooLarge  = "too_large"
	ResultError     = "error"
)

// Collector holds the gtminspect metric vectors. All methods are safe for
// concurrent use and tolerate a nil receiver.
type Collector struct {
	documentsInspected *prometheus.CounterVec   // by result
	rowsProduced       prometheus.Counter       // total FlatRows emitted
	unresolvedTriggers prometheus.Counter       // firing ids with no trigger
	invalidFilters     prometheus.Counter       // filters missing arg0/arg1
	inspectionDuration *prometheus.HistogramVec // by result
	reportsExported    *prometheus.CounterVec   // by format, scheme, status
	exportDuration     *prometheus.HistogramVec // by format, scheme
	startTime          time.Time
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default returns the process-wide collector registered with
// prometheus.DefaultRegisterer.
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = New(prometheus.DefaultRegisterer)
	})
	return defaultCollector
}

// New creates a collector registered with reg. Tests pass a fresh
// prometheus.NewRegistry to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		documentsInspected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "documents_inspected_total",
				Help:      "Total number of container exports inspected",
			},
			[]string{"result"},
		),
		rowsProduced: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "rows_produced_total",
				Help:      "Total number of flattened tag rows produced",
			},
		),
		unresolvedTriggers: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "unresolved_triggers_total",
				Help:      "Firing trigger ids that matched no trigger definition",
			},
		),
		invalidFilters: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "invalid_filters_total",
				Help:      "Filters rendered without both operands",
			},
		),
		inspectionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "inspection_duration_seconds",
				Help:      "Time spent parsing and flattening one document",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"result"},
		),
		reportsExported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "reports_exported_total",
				Help:      "Reports written to a destination",
			},
			[]string{"format", "scheme", "status"},
		),
		exportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "export_duration_seconds",
				Help:      "Time spent encoding and writing one report",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"format", "scheme"},
		),
		startTime: time.Now(),
	}
}

// ObserveInspection records one inspected document.
func (c *Collector) ObserveInspection(result string, stats flatten.Stats, d time.Duration) {
	if c == nil {
		return
	}
	c.documentsInspected.WithLabelValues(result).Inc()
	c.inspectionDuration.WithLabelValues(result).Observe(d.Seconds())
	if result != ResultOK {
		return
	}
	c.rowsProduced.Add(float64(stats.Tags))
	c.unresolvedTriggers.Add(float64(stats.UnresolvedTriggers))
	c.invalidFilters.Add(float64(stats.InvalidFilters))
}

// ObserveExport records one report export.
func (c *Collector) ObserveExport(format, scheme string, err error, d time.Duration) {
	if c == nil {
		return
	}
	c.reportsExported.WithLabelValues(format, scheme, status(err)).Inc()
	c.exportDuration.WithLabelValues(format, scheme).Observe(d.Seconds())
}

// StartTime returns when the collector was created.
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Timer measures the duration of one operation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It may be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
