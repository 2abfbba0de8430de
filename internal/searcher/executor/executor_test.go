package executor

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/rewrite"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = map[string]string{
	"d1": "distributed search engine",
	"d2": "search cluster shard",
	"d3": "seaside holiday",
	"d4": "searching for seashells",
	"d5": "golang concurrency",
	"d6": "rust systems",
	"d7": "kafka streams",
}

func newEngine(t *testing.T, docs map[string]string) *indexer.Engine {
	t.Helper()
	e, err := indexer.NewEngine(config.IndexerConfig{DataDir: t.TempDir(), SegmentMaxSize: 1 << 30})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		require.NoError(t, e.IndexDocument(id, map[string]string{"body": docs[id]}))
	}
	return e
}

func docIDs(res *SearchResult) []string {
	ids := make([]string, 0, len(res.Results))
	for _, d := range res.Results {
		ids = append(ids, d.DocID)
	}
	sort.Strings(ids)
	return ids
}

func run(t *testing.T, exec *Executor, q string) *SearchResult {
	t.Helper()
	plan, err := parser.Parse(q)
	require.NoError(t, err)
	res, err := exec.Execute(context.Background(), plan, 10)
	require.NoError(t, err)
	return res
}

func TestExecute_BooleanOperators(t *testing.T) {
	exec := New(newEngine(t, corpus), StaticMethod(rewrite.NewConstantScoreAuto()))

	assert.Equal(t, []string{"d1", "d2", "d4"}, docIDs(run(t, exec, "search")))
	assert.Equal(t, []string{"d2"}, docIDs(run(t, exec, "search cluster")))
	assert.Equal(t, []string{"d2", "d5"}, docIDs(run(t, exec, "cluster OR golang")))
	assert.Equal(t, []string{"d1", "d4"}, docIDs(run(t, exec, "search NOT cluster")))
	assert.Empty(t, run(t, exec, "").Results)
}

func TestExecute_PatternStrategiesAgreeOnMatches(t *testing.T) {
	engine := newEngine(t, corpus)
	small := New(engine, StaticMethod(rewrite.NewConstantScoreAuto(rewrite.WithDocCountPercent(100))))
	cutoff := New(engine, StaticMethod(rewrite.NewConstantScoreAuto(rewrite.WithTermCountCutoff(1))))

	a := run(t, small, "sea*")
	b := run(t, cutoff, "sea*")

	assert.Equal(t, []string{"d1", "d2", "d3", "d4"}, docIDs(a))
	assert.Equal(t, docIDs(a), docIDs(b))

	require.Len(t, a.Rewrites, 1)
	require.Len(t, b.Rewrites, 1)
	assert.Equal(t, rewrite.StrategyConstantBool, a.Rewrites[0].Strategy)
	assert.Equal(t, rewrite.StrategyFilter, b.Rewrites[0].Strategy)
	assert.Equal(t, rewrite.CutoffTermCount, b.Rewrites[0].Reason)

	for _, d := range b.Results {
		assert.Equal(t, 1.0, d.Score, "filter matches score the pattern boost")
	}
}

func TestExecute_PatternCombinedWithTerms(t *testing.T) {
	exec := New(newEngine(t, corpus), StaticMethod(rewrite.NewConstantScoreAuto()))

	assert.Equal(t, []string{"d2"}, docIDs(run(t, exec, "sea* cluster")))
	assert.Equal(t, []string{"d1", "d2", "d4"}, docIDs(run(t, exec, "sea* NOT seasid*")))
	assert.Equal(t, []string{"d3", "d4"}, docIDs(run(t, exec, "s?a*s*")))
	assert.Equal(t, []string{"d1", "d5"}, docIDs(run(t, exec, "[cluster TO golang]")), "range bounds are not stemmed")
	assert.Empty(t, run(t, exec, "zzz*").Results)
}

func TestExecute_FilterSpansSegmentsAndMemory(t *testing.T) {
	engine := newEngine(t, map[string]string{"d1": "search engine"})
	require.NoError(t, engine.Flush())
	require.NoError(t, engine.IndexDocument("d2", map[string]string{"body": "seashore"}))
	require.NoError(t, engine.IndexDocument("d3", map[string]string{"body": "search again"}))

	exec := New(engine, StaticMethod(rewrite.NewConstantScoreAuto(rewrite.WithDocCountPercent(0))))
	res := run(t, exec, "sea*")
	assert.Equal(t, []string{"d1", "d2", "d3"}, docIDs(res))
	assert.Equal(t, rewrite.StrategyFilter, res.Rewrites[0].Strategy)
	assert.Equal(t, 3, res.TotalHits)
}

func TestExecute_FilterSetsCombineLikeScoredClauses(t *testing.T) {
	engine := newEngine(t, corpus)
	small := New(engine, StaticMethod(rewrite.NewConstantScoreAuto(rewrite.WithDocCountPercent(100))))
	cutoff := New(engine, StaticMethod(rewrite.NewConstantScoreAuto(rewrite.WithDocCountPercent(0))))

	for q, want := range map[string][]string{
		"sea* c*":       {"d2"},
		"sea* s*":       {"d1", "d2", "d3", "d4"},
		"s* NOT sea*":   {"d6", "d7"},
		"s* NOT shard":  {"d1", "d3", "d4", "d6", "d7"},
		"sea* NOT s*":   {},
		"c* OR golang":  {"d2", "d5"},
		"sea* c* NOT x": {"d2"},
	} {
		a := run(t, small, q)
		b := run(t, cutoff, q)
		assert.Equal(t, want, docIDs(a), q)
		assert.Equal(t, want, docIDs(b), q)
		for _, r := range b.Rewrites {
			assert.Equal(t, rewrite.StrategyFilter, r.Strategy, q)
		}
	}

	res := run(t, cutoff, "sea* c*")
	require.Len(t, res.Results, 1)
	assert.Equal(t, 2.0, res.Results[0].Score, "intersected filters score the sum of their boosts")
}

func TestExecute_FilterSetsKeyOnDocumentID(t *testing.T) {
	engine := newEngine(t, map[string]string{"d1": "search engine", "d2": "seaside"})
	require.NoError(t, engine.Flush())
	require.NoError(t, engine.IndexDocument("d1", map[string]string{"body": "cluster"}))

	exec := New(engine, StaticMethod(rewrite.NewConstantScoreAuto(rewrite.WithDocCountPercent(0))))
	assert.Equal(t, []string{"d1"}, docIDs(run(t, exec, "sea* clu*")))
	assert.Equal(t, []string{"d2"}, docIDs(run(t, exec, "sea* NOT clu*")))
}

func TestExecute_BoostedPattern(t *testing.T) {
	exec := New(newEngine(t, corpus), StaticMethod(rewrite.NewConstantScoreAuto()))
	res := run(t, exec, "golang^2 OR sea*^3")
	scores := make(map[string]float64)
	for _, d := range res.Results {
		scores[d.DocID] = d.Score
	}
	assert.Len(t, scores, 5)
	assert.Equal(t, 3.0, scores["d1"])
	assert.Equal(t, 3.0, scores["d3"])
	assert.Greater(t, scores["d5"], 0.0)
}

type recorder struct{ decisions []rewrite.Decision }

func (r *recorder) ObserveRewrite(d rewrite.Decision) { r.decisions = append(r.decisions, d) }

func TestExecute_RewriteCacheAndRecorder(t *testing.T) {
	rec := &recorder{}
	cache := rewrite.NewCache(16, nil)
	exec := New(newEngine(t, corpus), StaticMethod(rewrite.NewConstantScoreAuto()),
		WithRewriteCache(cache), WithRecorder(rec))

	first := run(t, exec, "sea*")
	second := run(t, exec, "sea*")
	assert.Equal(t, docIDs(first), docIDs(second))
	assert.False(t, first.Rewrites[0].Cached)
	assert.True(t, second.Rewrites[0].Cached)
	assert.Len(t, rec.decisions, 2)
	assert.Equal(t, int64(1), cache.Stats().Hits)
}

type failingMethod struct{}

func (failingMethod) Rewrite(index.Reader, query.MultiTermQuery) (query.Query, error) {
	return nil, errors.New("boom")
}

func TestExecute_RewriteErrorFailsQuery(t *testing.T) {
	exec := New(newEngine(t, corpus), StaticMethod(failingMethod{}))
	plan, err := parser.Parse("search sea*")
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), plan, 10)
	assert.ErrorContains(t, err, "boom")
	assert.Nil(t, res)
}

func TestExplain(t *testing.T) {
	exec := New(newEngine(t, corpus), StaticMethod(rewrite.NewConstantScoreAuto()))
	plan, err := parser.Parse("search sea* NOT gol*")
	require.NoError(t, err)

	reports, err := exec.Explain(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "body:sea*", reports[0].Pattern)
	assert.Equal(t, "body:gol*", reports[1].Pattern)
}

func TestSharded_MergesShards(t *testing.T) {
	engines := map[int]*indexer.Engine{
		0: newEngine(t, map[string]string{"d1": "search engine", "d2": "golang"}),
		1: newEngine(t, map[string]string{"d3": "seashell search", "d4": "concurrency"}),
	}
	se := NewSharded(engines, StaticMethod(rewrite.NewConstantScoreAuto()))
	plan, err := parser.Parse("sea*")
	require.NoError(t, err)

	res, err := se.Execute(context.Background(), plan, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d3"}, docIDs(res))
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Rewrites, 2)
	assert.Equal(t, 0, res.Rewrites[0].Shard)
	assert.Equal(t, 1, res.Rewrites[1].Shard)

	reports, err := se.Explain(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestSharded_ShardFailureFailsSearch(t *testing.T) {
	engines := map[int]*indexer.Engine{
		0: newEngine(t, map[string]string{"d1": "search"}),
		1: newEngine(t, map[string]string{"d2": "search"}),
	}
	se := NewSharded(engines, StaticMethod(failingMethod{}))
	plan, err := parser.Parse("sea*")
	require.NoError(t, err)

	_, err = se.Execute(context.Background(), plan, 10)
	assert.Error(t, err)
}
