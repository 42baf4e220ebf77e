package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
)

func TestRateLimit_AllowsUnderLimitAndPreservesBody(t *testing.T) {
	limiter := newFakeLimiter()
	policy := NewRateLimitPolicy("payment", time.Minute, 2, 2)
	handler := RateLimit(policy, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"tester@example.com"`) {
			t.Fatalf("unexpected body: %s", string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/verify", strings.NewReader(`{"email":"tester@example.com","intentId":"pi_1"}`))
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimit_EmailLimitTriggersAcrossCase(t *testing.T) {
	limiter := newFakeLimiter()
	policy := NewRateLimitPolicy("payment", time.Minute, 0, 2)
	handler := RateLimit(policy, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	emails := []string{"blocked@example.com", "Blocked@Example.com", " blocked@example.com "}
	for i, email := range emails {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/create-intent", strings.NewReader(`{"email":"`+email+`"}`))
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		switch {
		case i < 2 && rec.Code != http.StatusOK:
			t.Fatalf("expected success before limit, got %d", rec.Code)
		case i >= 2:
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if rec.Header().Get("Retry-After") != "60" {
				t.Fatalf("expected Retry-After header, got %q", rec.Header().Get("Retry-After"))
			}
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
				t.Fatalf("unexpected code: %s", payload.Error.Code)
			}
		}
	}
	for scope := range limiter.counts {
		if strings.Contains(scope, "example.com") {
			t.Fatalf("raw email leaked into rate limit key %q", scope)
		}
	}
}

func TestRateLimit_IPLimitTriggers(t *testing.T) {
	limiter := newFakeLimiter()
	policy := NewRateLimitPolicy("leads", time.Minute, 1, 0)
	handler := RateLimit(policy, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(`{"email":"foo@example.com"}`))
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 5.6.7.8")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected success, got %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	}
	if _, ok := limiter.counts["ip:leads:5.6.7.8"]; !ok {
		t.Fatalf("expected forwarded client ip to be used, got %v", limiter.counts)
	}
}

func TestRateLimit_DisabledPolicyPassesThrough(t *testing.T) {
	limiter := newFakeLimiter()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := RateLimit(NewRateLimitPolicy("off", 0, 1, 1), limiter, nil)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusNoContent || len(limiter.counts) != 0 {
		t.Fatalf("disabled policy should not touch the limiter")
	}
}

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}
