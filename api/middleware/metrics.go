package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/quizfunnel-backend/pkg/metrics"
)

// Metrics records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func Metrics(m *metrics.FunnelMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			if route == r.URL.Path && rec.statusCode() == http.StatusNotFound {
				route = "unmatched"
			}
			m.ObserveRequest(route, r.Method, rec.statusCode(), time.Since(start))
		})
	}
}
