package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const (
	ctxRequestID contextKey = "request_id"
	ctxClientIP  contextKey = "client_ip"
)

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

// ClientIPFromContext returns the caller address resolved by RequestID.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientIP).(string); ok {
		return v
	}
	return ""
}

func withRequestMeta(ctx context.Context, requestID, clientIP string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxRequestID, requestID)
	return context.WithValue(ctx, ctxClientIP, clientIP)
}

// ClientIP resolves the caller address from the right-most X-Forwarded-For
// hop, the one the edge router appends, falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	if ip := lastForwardedHop(r.Header.Values("X-Forwarded-For")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func lastForwardedHop(headers []string) string {
	for i := len(headers) - 1; i >= 0; i-- {
		parts := strings.Split(headers[i], ",")
		for j := len(parts) - 1; j >= 0; j-- {
			if ip := strings.TrimSpace(parts[j]); ip != "" {
				return ip
			}
		}
	}
	return ""
}
