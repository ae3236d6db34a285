// Package metrics exposes Prometheus collectors for compilation and
// evaluation activity.
//
// A nil *Metrics is valid and records nothing, so callers can hold an
// optional collector set without checking it:
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	ev := evaluator.New(evaluator.WithMetrics(m))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wandmagic/metapath/pkg/cache"
	"github.com/wandmagic/metapath/pkg/types"
)

const namespace = "metapath"

// Metrics holds the collectors registered by New.
type Metrics struct {
	compilations *prometheus.CounterVec
	evaluations  *prometheus.CounterVec
	errors       *prometheus.CounterVec
	duration     prometheus.Histogram
	reg          prometheus.Registerer
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		compilations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compilations_total",
			Help:      "Expressions compiled, by result",
		}, []string{"result"}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Top-level evaluations, by result",
		}, []string{"result"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Compilation and evaluation errors, by error code",
		}, []string{"code"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating an expression",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14), // 50µs to ~400ms
		}),
	}
}

// ObserveCompile records the outcome of one compilation.
func (m *Metrics) ObserveCompile(err error) {
	if m == nil {
		return
	}
	m.compilations.WithLabelValues(result(err)).Inc()
	m.observeError(err)
}

// ObserveEvaluation records the outcome and latency of one evaluation.
func (m *Metrics) ObserveEvaluation(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(result(err)).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.observeError(err)
}

// WatchCache registers counters that report the statistics of c.
func (m *Metrics) WatchCache(c *cache.Cache) error {
	if m == nil || m.reg == nil || c == nil {
		return nil
	}
	stat := func(name, help string, read func(cache.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(c.Stats())) })
	}
	collectors := []prometheus.Collector{
		stat("hits_total", "Compile cache hits", func(s cache.Stats) uint64 { return s.Hits }),
		stat("misses_total", "Compile cache misses", func(s cache.Stats) uint64 { return s.Misses }),
		stat("evictions_total", "Compile cache evictions", func(s cache.Stats) uint64 { return s.Evictions }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Compiled expressions currently cached",
		}, func() float64 { return float64(c.Len()) }),
	}
	for _, col := range collectors {
		if err := m.reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observeError(err error) {
	if err == nil {
		return
	}
	code := string(types.CodeOf(err))
	if code == "" {
		code = "other"
	}
	m.errors.WithLabelValues(code).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
