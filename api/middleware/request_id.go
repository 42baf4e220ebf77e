package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
)

const (
	requestIDHeader    = "X-Request-Id"
	maxRequestIDLength = 128
)

// RequestID propagates or mints a request id and records the client address
// for downstream handlers and log lines.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if reqID == "" || len(reqID) > maxRequestIDLength {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ip := ClientIP(r)
			ctx := withRequestMeta(r.Context(), reqID, ip)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
				ctx = logg.WithField(ctx, "client_ip", ip)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
