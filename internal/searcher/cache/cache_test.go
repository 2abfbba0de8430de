package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/ranker"
	pkgredis "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: make(map[string]string)} }

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func result(q string) *executor.SearchResult {
	return &executor.SearchResult{Query: q, TotalHits: 1, Results: []ranker.ScoredDoc{{DocID: "d1", Score: 1}}}
}

func TestQueryCache_GetOrCompute(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	k := Key{Query: "sea* search", Limit: 10, Strategy: "a", IndexVersion: "1"}
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return result(k.Query), nil
	}

	_, cached, err := c.GetOrCompute(context.Background(), k, compute)
	require.NoError(t, err)
	assert.False(t, cached)

	got, cached, err := c.GetOrCompute(context.Background(), k, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "d1", got.Results[0].DocID)
	assert.Equal(t, 1, calls)
}

func TestQueryCache_KeyParts(t *testing.T) {
	base := Key{Query: "alpha beta", Limit: 10, Strategy: "s1", IndexVersion: "0.1"}

	assert.Equal(t, buildKey(base), buildKey(Key{Query: "beta  alpha", Limit: 10, Strategy: "s1", IndexVersion: "0.1"}))
	for _, other := range []Key{
		{Query: "alpha beta", Limit: 5, Strategy: "s1", IndexVersion: "0.1"},
		{Query: "alpha beta", Limit: 10, Strategy: "s2", IndexVersion: "0.1"},
		{Query: "alpha beta", Limit: 10, Strategy: "s1", IndexVersion: "0.2"},
		{Query: "alpha OR beta", Limit: 10, Strategy: "s1", IndexVersion: "0.1"},
		{Query: "alpha NOT beta", Limit: 10, Strategy: "s1", IndexVersion: "0.1"},
	} {
		assert.NotEqual(t, buildKey(base), buildKey(other), "%+v", other)
	}
}

func TestNormalizeQuery_KeepsRangesTogether(t *testing.T) {
	assert.Equal(t, "AND|[a TO c],go", normalizeQuery("[a TO c] go"))
	assert.Equal(t, "OR|x,y|NOT:title:{a TO b}", normalizeQuery("y or x NOT title:{a TO b}"))
}

func TestQueryCache_ComputeErrorNotCached(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	k := Key{Query: "q"}
	_, _, err := c.GetOrCompute(context.Background(), k, func() (*executor.SearchResult, error) {
		return nil, errors.New("shard down")
	})
	assert.Error(t, err)
	_, ok := c.Get(context.Background(), k)
	assert.False(t, ok)
}

func TestQueryCache_SingleFlight(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	k := Key{Query: "popular"}
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), k, func() (*executor.SearchResult, error) {
				calls.Add(1)
				<-release
				return result(k.Query), nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestQueryCache_Invalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute)
	c.Set(context.Background(), Key{Query: "a"}, result("a"))
	c.Set(context.Background(), Key{Query: "b"}, result("b"))

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, ok := c.Get(context.Background(), Key{Query: "a"})
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(1), misses)
}

type downStore struct {
	calls atomic.Int64
}

func (s *downStore) Get(context.Context, string) (string, error) {
	s.calls.Add(1)
	return "", errors.New("connection refused")
}

func (s *downStore) Set(context.Context, string, any, time.Duration) error {
	s.calls.Add(1)
	return errors.New("connection refused")
}

func (s *downStore) FlushByPattern(context.Context, string) (int64, error) { return 0, nil }

func TestBreakerStore_StopsCallingFailingStore(t *testing.T) {
	down := &downStore{}
	store := NewBreakerStore(down, resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	c := New(store, time.Minute)
	ctx := context.Background()
	k := Key{Query: "sea*", Limit: 10}

	for i := 0; i < 5; i++ {
		_, ok := c.Get(ctx, k)
		assert.False(t, ok)
	}
	assert.Equal(t, int64(2), down.calls.Load())
	assert.Equal(t, resilience.StateOpen, store.State())
}

func TestBreakerStore_MissIsNotFailure(t *testing.T) {
	store := NewBreakerStore(newMemStore(), resilience.CircuitBreakerConfig{FailureThreshold: 1})
	c := New(store, time.Minute)
	for i := 0; i < 3; i++ {
		_, ok := c.Get(context.Background(), Key{Query: "x"})
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateClosed, store.State())
}
