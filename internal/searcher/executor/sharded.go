package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/tracing"
)

// ShardedExecutor runs a plan on every shard concurrently and merges the
// ranked results. Each shard scores with its own statistics. A failing shard
// fails the whole search.
type ShardedExecutor struct {
	engines map[int]*indexer.Engine
	exec    *Executor
	logger  *slog.Logger
}

func NewSharded(engines map[int]*indexer.Engine, methods MethodSource, opts ...Option) *ShardedExecutor {
	return &ShardedExecutor{
		engines: engines,
		exec:    New(nil, methods, opts...),
		logger:  slog.Default().With("component", "sharded-executor"),
	}
}

func (se *ShardedExecutor) shardIDs() []int {
	ids := make([]int, 0, len(se.engines))
	for id := range se.engines {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (se *ShardedExecutor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if len(plan.Clauses) == 0 {
		return &SearchResult{
			Query:     plan.RawQuery,
			Results:   []ranker.ScoredDoc{},
			TermStats: map[string]int{},
		}, nil
	}
	ids := se.shardIDs()
	results := make([]*SearchResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		engine := se.engines[id]
		g.Go(func() error {
			sctx, span := tracing.Start(gctx, "shard.execute")
			defer span.End()
			span.SetAttr("shard_id", id)
			res, err := se.exec.ExecuteOn(sctx, id, engine.Snapshot(), plan, limit)
			if err != nil {
				span.SetAttr("error", err.Error())
				return err
			}
			span.SetAttr("hits", res.TotalHits)
			span.SetAttr("rewrites", len(res.Rewrites))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		se.logger.Error("shard query failed", "query", plan.RawQuery, "error", err)
		return nil, fmt.Errorf("shard fan-out: %w", err)
	}

	merged := &SearchResult{
		Query:     plan.RawQuery,
		TermStats: make(map[string]int),
	}
	perShard := make([][]ranker.ScoredDoc, 0, len(results))
	for _, res := range results {
		merged.TotalHits += res.TotalHits
		for term, n := range res.TermStats {
			merged.TermStats[term] += n
		}
		merged.Rewrites = append(merged.Rewrites, res.Rewrites...)
		perShard = append(perShard, res.Results)
	}
	merged.Results = merger.Merge(perShard, limit)

	se.logger.Info("sharded query executed",
		"query", plan.RawQuery,
		"shards_queried", len(ids),
		"global_candidates", merged.TotalHits,
		"rewrites", len(merged.Rewrites),
		"results", len(merged.Results),
	)
	return merged, nil
}

// Explain collects the rewrite decisions of every shard, in shard order.
func (se *ShardedExecutor) Explain(ctx context.Context, plan *parser.QueryPlan) ([]RewriteReport, error) {
	ids := se.shardIDs()
	perShard := make([][]RewriteReport, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		engine := se.engines[id]
		g.Go(func() error {
			reports, err := se.exec.ExplainOn(gctx, id, engine.Snapshot(), plan)
			if err != nil {
				return err
			}
			perShard[i] = reports
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("explaining rewrites: %w", err)
	}
	all := make([]RewriteReport, 0)
	for _, reports := range perShard {
		all = append(all, reports...)
	}
	return all, nil
}
