package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestThrottleBurstThenRefill(t *testing.T) {
	throttle := NewThrottle(1, 2)
	now := time.Unix(1700000000, 0)
	throttle.now = func() time.Time { return now }

	if !throttle.Allow("a") || !throttle.Allow("a") {
		t.Fatal("burst should be allowed")
	}
	if throttle.Allow("a") {
		t.Fatal("third request in the same instant should be throttled")
	}
	if !throttle.Allow("b") {
		t.Fatal("clients are throttled independently")
	}

	now = now.Add(time.Second)
	if !throttle.Allow("a") {
		t.Fatal("token should refill after one second")
	}
}

func TestThrottleSweepsIdleClients(t *testing.T) {
	throttle := NewThrottle(1, 1)
	now := time.Unix(1700000000, 0)
	throttle.now = func() time.Time { return now }

	throttle.Allow("idle")
	now = now.Add(2 * throttleIdleTTL)
	throttle.Allow("fresh")

	if _, ok := throttle.clients["idle"]; ok {
		t.Fatal("idle client should be swept")
	}
}

func TestThrottleMiddlewareRejects(t *testing.T) {
	throttle := NewThrottle(1, 1)
	rejected := 0
	reject := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rejected++
		w.WriteHeader(http.StatusOK)
	})
	handler := throttle.Middleware(reject)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/events/conversion", nil)
		req.RemoteAddr = "9.9.9.9:1"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if rejected != 2 {
		t.Fatalf("expected 2 rejected requests, got %d", rejected)
	}
}

func TestNilThrottleAllowsEverything(t *testing.T) {
	throttle := NewThrottle(0, 0)
	if throttle != nil {
		t.Fatal("non-positive settings should disable the throttle")
	}
	if !throttle.Allow("x") {
		t.Fatal("nil throttle must allow")
	}
}
