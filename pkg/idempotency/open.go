package idempotency

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/quizfunnel-backend/pkg/redis"
	"gorm.io/gorm"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Backends carries the shared stores a Set may be built on. Only the store
// matching the selected backend needs to be non-nil.
type Backends struct {
	Redis redis.IdempotencyStore
	DB    *gorm.DB
}

// Open builds a scoped Set for the named backend.
func Open(backend, scope string, ttl time.Duration, b Backends) (Set, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemorySet(), nil
	case BackendRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("idempotency backend %q requires redis", BackendRedis)
		}
		return NewRedisSet(b.Redis, scope, ttl)
	case BackendPostgres:
		if b.DB == nil {
			return nil, fmt.Errorf("idempotency backend %q requires a database", BackendPostgres)
		}
		return NewPostgresSet(b.DB, scope, ttl)
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}
