package cache

import (
	"context"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/resilience"
)

// BreakerStore stops calling a failing Redis until it recovers, so an
// outage costs one fast error per lookup instead of a network timeout.
// Misses do not count as failures.
type BreakerStore struct {
	next Store
	cb   *resilience.CircuitBreaker
}

var _ Store = (*BreakerStore)(nil)

func NewBreakerStore(next Store, cfg resilience.CircuitBreakerConfig) *BreakerStore {
	cfg.IsFailure = func(err error) bool { return !pkgredis.IsNilError(err) }
	return &BreakerStore{next: next, cb: resilience.NewCircuitBreaker("redis-cache", cfg)}
}

func (s *BreakerStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.cb.Execute(func() error {
		var err error
		v, err = s.next.Get(ctx, key)
		return err
	})
	return v, err
}

func (s *BreakerStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return s.cb.Execute(func() error { return s.next.Set(ctx, key, value, ttl) })
}

// FlushByPattern bypasses the breaker: invalidation is an explicit admin
// action and should report the real error.
func (s *BreakerStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	return s.next.FlushByPattern(ctx, pattern)
}

func (s *BreakerStore) State() resilience.State { return s.cb.GetState() }
