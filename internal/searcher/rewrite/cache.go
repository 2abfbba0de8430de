package rewrite

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/query"
)

const DefaultCacheSize = 4096

// Versioned readers never change their contents for a given version, which
// is what makes a rewrite against them cacheable.
type Versioned interface {
	Version() string
}

type cacheEntry struct {
	result   query.Query
	decision Decision
}

// CacheRecorder is notified of cache lookups.
type CacheRecorder interface {
	CacheHit()
	CacheMiss()
}

// Cache remembers rewrites by (method key, reader version, pattern). A
// hit skips term collection entirely, so the pattern's lifetime term counter
// only advances on misses. Cached queries are shared and must not be
// modified by callers.
type Cache struct {
	entries  *lru.Cache[string, cacheEntry]
	recorder CacheRecorder
	hits     atomic.Int64
	misses   atomic.Int64
}

func NewCache(size int, recorder CacheRecorder) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, _ := lru.New[string, cacheEntry](size)
	return &Cache{entries: entries, recorder: recorder}
}

// Apply rewrites q with m, consulting the cache when both m and r have a
// stable identity. Otherwise it behaves like the package level Apply.
func (c *Cache) Apply(m Method, r index.Reader, q query.MultiTermQuery) (query.Query, Decision, error) {
	keyed, ok := m.(Keyed)
	if !ok {
		return Apply(m, r, q)
	}
	versioned, ok := r.(Versioned)
	if !ok {
		return Apply(m, r, q)
	}

	key := cacheKey(keyed.Key(), versioned.Version(), q)
	if e, found := c.entries.Get(key); found {
		c.hits.Add(1)
		if c.recorder != nil {
			c.recorder.CacheHit()
		}
		d := e.decision
		d.Cached = true
		return e.result, d, nil
	}

	c.misses.Add(1)
	if c.recorder != nil {
		c.recorder.CacheMiss()
	}
	result, d, err := Apply(m, r, q)
	if err != nil {
		return nil, Decision{}, err
	}
	c.entries.Add(key, cacheEntry{result: result, decision: d})
	return result, d, nil
}

func (c *Cache) Len() int { return c.entries.Len() }

func (c *Cache) Purge() { c.entries.Purge() }

type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

func cacheKey(method, version string, q query.MultiTermQuery) string {
	return fmt.Sprintf("%s|%s|%T|%s", method, version, q, q.String(""))
}
