package mid

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/adamwoolhether/rollup/foundation/web"
)

// HTTPMetrics holds the request counters shared by every route of an App.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Errors   prometheus.Counter
	Duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the http metrics with reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	f := promauto.With(reg)

	return &HTTPMetrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollup",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of handled requests by method and status code.",
		}, []string{"method", "code"}),
		Errors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "rollup",
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Number of requests whose handler returned an error.",
		}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rollup",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Metrics updates program counters.
func Metrics(m *HTTPMetrics) web.Middleware {
	mw := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()
			err := handler(ctx, w, r)

			code := http.StatusOK
			if v, verr := web.GetValues(ctx); verr == nil && v.StatusCode != 0 {
				code = v.StatusCode
			}
			if err != nil {
				m.Errors.Inc()
				code = http.StatusInternalServerError
			}

			m.Requests.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()
			m.Duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())

			return err
		}

		return h
	}

	return mw
}
