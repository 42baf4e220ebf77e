package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const throttleIdleTTL = 10 * time.Minute

// Throttle is an in-process per-client token bucket for endpoints that must
// stay cheap and never touch shared storage.
type Throttle struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*throttleEntry
	now     func() time.Time
	sweptAt time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle returns nil when rps or burst is not positive, which disables
// throttling.
func NewThrottle(rps float64, burst int) *Throttle {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &Throttle{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*throttleEntry),
		now:     time.Now,
	}
}

func (t *Throttle) Allow(client string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)
	entry, ok := t.clients[client]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.clients[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (t *Throttle) sweep(now time.Time) {
	if now.Sub(t.sweptAt) < throttleIdleTTL {
		return
	}
	for key, entry := range t.clients {
		if now.Sub(entry.lastSeen) >= throttleIdleTTL {
			delete(t.clients, key)
		}
	}
	t.sweptAt = now
}

// Middleware hands throttled requests to reject instead of next.
func (t *Throttle) Middleware(reject http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if t == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.Allow(ClientIP(r)) {
				reject.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
