package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath/pkg/cache"
	"github.com/wandmagic/metapath/pkg/metrics"
	"github.com/wandmagic/metapath/pkg/types"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveCompile(nil)
	m.ObserveCompile(types.NewError(types.ErrSyntax, "Unexpected token", 3))
	m.ObserveEvaluation(2*time.Millisecond, nil)
	m.ObserveEvaluation(time.Millisecond, types.Errorf(types.ErrDivisionByZero, "division by zero"))
	m.ObserveEvaluation(time.Millisecond, context.DeadlineExceeded)

	n, err := testutil.GatherAndCount(reg,
		"metapath_compilations_total",
		"metapath_evaluations_total",
		"metapath_errors_total",
		"metapath_evaluation_duration_seconds")
	require.NoError(t, err)
	// 2 compilation series, 2 evaluation series, 3 error codes, 1 histogram
	assert.Equal(t, 8, n)
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveCompile(nil)
		m.ObserveEvaluation(time.Second, nil)
		assert.NoError(t, m.WatchCache(cache.New(1)))
	})
}

func TestWatchCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := cache.New(2)
	require.NoError(t, m.WatchCache(c))

	c.Get("missing")
	c.Get("missing")

	n, err := testutil.GatherAndCount(reg, "metapath_cache_misses_total", "metapath_cache_entries")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// registering the same cache twice is rejected by the registry
	assert.Error(t, m.WatchCache(c))
}
