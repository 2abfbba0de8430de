// Package shard provides hash-based shard routing for index engines. Each
// shard owns an independent indexer.Engine instance backed by its own data
// directory.
package shard

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/errors"
)

// Router maps shard IDs to dedicated indexer.Engine instances.
type Router struct {
	engines   map[int]*indexer.Engine
	mu        sync.RWMutex
	numShards int
	logger    *slog.Logger
}

// NewRouter creates numShards engines, each in its own sub-directory under
// baseCfg.DataDir.
func NewRouter(baseCfg config.IndexerConfig, numShards int) (*Router, error) {
	if numShards < 1 {
		return nil, fmt.Errorf("number of shards must be positive, got %d", numShards)
	}
	r := &Router{
		engines:   make(map[int]*indexer.Engine, numShards),
		numShards: numShards,
		logger:    slog.Default().With("component", "shard-router"),
	}
	for i := 0; i < numShards; i++ {
		shardCfg := baseCfg
		shardCfg.DataDir = filepath.Join(baseCfg.DataDir, fmt.Sprintf("shard-%d", i))
		engine, err := indexer.NewEngine(shardCfg)
		if err != nil {
			r.closeAll()
			return nil, fmt.Errorf("creating engine for shard %d: %w", i, err)
		}
		r.engines[i] = engine
		r.logger.Info("shard engine initialized",
			"shard_id", i,
			"data_dir", shardCfg.DataDir,
		)
	}
	r.logger.Info("shard router ready", "num_shards", numShards)
	return r, nil
}

// ShardFor returns the shard that owns docID. The mapping only depends on
// the id and the shard count.
func (r *Router) ShardFor(docID string) int {
	return int(xxhash.Sum64String(docID) % uint64(r.numShards))
}

// Route returns the Engine responsible for the given shard ID.
func (r *Router) Route(shardID int) (*indexer.Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[shardID]
	if !ok {
		return nil, fmt.Errorf("shard %d (valid range: 0-%d): %w", shardID, r.numShards-1, apperrors.ErrShardUnavailable)
	}
	return engine, nil
}

// IndexDocument routes the document by id and indexes it, returning the
// shard it landed on.
func (r *Router) IndexDocument(docID string, fields map[string]string) (int, error) {
	shardID := r.ShardFor(docID)
	engine, err := r.Route(shardID)
	if err != nil {
		return shardID, err
	}
	if err := engine.IndexDocument(docID, fields); err != nil {
		return shardID, fmt.Errorf("indexing %s in shard %d: %w", docID, shardID, err)
	}
	return shardID, nil
}

// GetAllEngines returns a snapshot map of all shard engines.
func (r *Router) GetAllEngines() map[int]*indexer.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[int]*indexer.Engine, len(r.engines))
	for id, engine := range r.engines {
		result[id] = engine
	}
	return result
}

func (r *Router) NumShards() int {
	return r.numShards
}

// IndexVersion combines the versions of every shard snapshot in shard
// order. It changes whenever any shard's searchable contents change.
func (r *Router) IndexVersion() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := ""
	for i := 0; i < r.numShards; i++ {
		if i > 0 {
			v += ","
		}
		v += r.engines[i].Snapshot().Version()
	}
	return v
}

// FlushAll flushes every shard engine to disk.
func (r *Router) FlushAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var firstErr error
	for id, engine := range r.engines {
		if err := engine.Flush(); err != nil {
			r.logger.Error("flush failed", "shard_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ReloadAll tells every shard engine to re-scan for newly flushed segments.
// Returns the total number of new segments loaded across all shards.
func (r *Router) ReloadAll() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, engine := range r.engines {
		total += engine.ReloadSegments()
	}
	return total
}

// Close flushes and closes every shard engine.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeAll()
}

func (r *Router) closeAll() error {
	var firstErr error
	for id, engine := range r.engines {
		if err := engine.Close(); err != nil {
			r.logger.Error("close failed", "shard_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
