package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts poll outcomes. A nil *Metrics records nothing.
type Metrics struct {
	polls    *prometheus.CounterVec
	skipped  prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics registers the poller collectors with reg. A nil reg yields
// working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupshare",
			Name:      "polls_total",
			Help:      "Session polls by outcome.",
		}, []string{"result"}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "groupshare",
			Name:      "poll_skipped_total",
			Help:      "Poll ticks skipped because a poll was still in flight.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "groupshare",
			Name:      "poll_duration_seconds",
			Help:      "Latency of session polls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observe(u Update, seconds float64) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(u.Kind.String()).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) skip() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}
