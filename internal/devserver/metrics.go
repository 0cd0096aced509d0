package devserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	shares   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, store *Store) *metrics {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "groupshare",
		Subsystem: "devserver",
		Name:      "sessions",
		Help:      "Sessions held in memory.",
	}, func() float64 { return float64(store.Len()) })

	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupshare",
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		shares: f.NewCounter(prometheus.CounterOpts{
			Namespace: "groupshare",
			Subsystem: "devserver",
			Name:      "card_shares_total",
			Help:      "New card shares created by execute.",
		}),
	}
}

// middleware counts requests by route template, so session ids do not
// become label values.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
