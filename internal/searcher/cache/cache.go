// Package cache keeps serialized search results in Redis. Keys include the
// active rewrite strategy and the index version, so a settings change or a
// new document makes old entries unreachable without an explicit flush.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

var _ Store = (*pkgredis.Client)(nil)

// Key identifies one cached result.
type Key struct {
	Query        string
	Limit        int
	Strategy     string
	IndexVersion string
}

type QueryCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(store Store, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, k Key) (*executor.SearchResult, bool) {
	key := buildKey(k)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		switch {
		case pkgredis.IsNilError(err):
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.logger.Debug("cache bypassed", "key", key, "error", err)
		default:
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", k.Query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, k Key, result *executor.SearchResult) {
	key := buildKey(k)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for k or computes it once, even
// when many callers miss at the same time.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	k Key,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, k); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(buildKey(k), func() (any, error) {
		if result, ok := c.Get(ctx, k); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, k, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(k Key) string {
	raw := fmt.Sprintf("%s:limit=%d:strategy=%s:index=%s", normalizeQuery(k.Query), k.Limit, k.Strategy, k.IndexVersion)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery makes word order irrelevant to the key: the operator
// applies to the whole query, not to the word it follows.
func normalizeQuery(query string) string {
	words := strings.Fields(query)
	terms := make([]string, 0)
	excludes := make([]string, 0)
	queryType := "AND"
	excludeNext := false
	for i := 0; i < len(words); i++ {
		w := words[i]
		if strings.HasPrefix(w, "[") || strings.HasPrefix(w, "{") || strings.Contains(w, ":[") || strings.Contains(w, ":{") {
			for !strings.ContainsAny(w, "]}") && i+1 < len(words) {
				i++
				w += " " + words[i]
			}
		}
		switch strings.ToUpper(w) {
		case "AND":
			queryType = "AND"
		case "OR":
			queryType = "OR"
		case "NOT":
			excludeNext = true
		default:
			if excludeNext {
				excludes = append(excludes, w)
				excludeNext = false
			} else {
				terms = append(terms, w)
			}
		}
	}

	sort.Strings(terms)
	sort.Strings(excludes)
	parts := []string{queryType, strings.Join(terms, ",")}
	if len(excludes) > 0 {
		parts = append(parts, "NOT:"+strings.Join(excludes, ","))
	}
	return strings.Join(parts, "|")
}
