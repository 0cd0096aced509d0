package cli

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/groupshare/internal/client/poller"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Empty(t *testing.T) {
	app, out := newTestApp(&fakeService{}, "")
	require.NoError(t, app.Stats(context.Background()))
	assert.Equal(t, "No statistics yet\n", out.String())
}

func TestStats_FormatsFamilies(t *testing.T) {
	app, out := newTestApp(&fakeService{}, "")
	_ = poller.NewMetrics(app.registry)

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests_total"}, []string{"code"})
	app.registry.MustRegister(requests)
	requests.WithLabelValues("200").Add(3)

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "sessions"})
	app.registry.MustRegister(gauge)
	gauge.Set(2)

	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "latency_seconds"})
	app.registry.MustRegister(hist)
	hist.Observe(0.5)
	hist.Observe(1.5)

	require.NoError(t, app.Stats(context.Background()))
	assert.Equal(t,
		"groupshare_poll_duration_seconds count=0 avg=0.000s\n"+
			"groupshare_poll_skipped_total 0\n"+
			"latency_seconds count=2 avg=1.000s\n"+
			"requests_total{code=200} 3\n"+
			"sessions 2\n",
		out.String())
}
