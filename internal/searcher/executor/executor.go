package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/rewrite"
)

type SearchResult struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TermStats map[string]int     `json:"term_stats"`
	Rewrites  []RewriteReport    `json:"rewrites,omitempty"`
}

// RewriteReport is the rewrite decision taken for one pattern on one shard.
type RewriteReport struct {
	Shard int `json:"shard"`
	rewrite.Decision
}

// Searchable is a point-in-time view of one shard.
type Searchable interface {
	index.Reader
	DocLength(docID string) int
	AvgDocLength() float64
}

// MethodSource hands out the rewrite method to use for the next query.
type MethodSource interface {
	Method() rewrite.Method
}

type staticMethod struct{ m rewrite.Method }

func (s staticMethod) Method() rewrite.Method { return s.m }

// StaticMethod always uses m.
func StaticMethod(m rewrite.Method) MethodSource { return staticMethod{m: m} }

// Recorder observes every rewrite decision.
type Recorder interface {
	ObserveRewrite(d rewrite.Decision)
}

type Option func(*Executor)

func WithRewriteCache(c *rewrite.Cache) Option {
	return func(e *Executor) { e.cache = c }
}

func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// Executor evaluates query plans against shard snapshots.
type Executor struct {
	engine   *indexer.Engine
	methods  MethodSource
	cache    *rewrite.Cache
	recorder Recorder
	logger   *slog.Logger
}

func New(engine *indexer.Engine, methods MethodSource, opts ...Option) *Executor {
	e := &Executor{
		engine:  engine,
		methods: methods,
		logger:  slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	return e.ExecuteOn(ctx, 0, e.engine.Snapshot(), plan, limit)
}

// ExecuteOn evaluates plan against one snapshot. Every pattern is rewritten
// with the method active when the call starts.
func (e *Executor) ExecuteOn(ctx context.Context, shard int, r Searchable, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if len(plan.Clauses) == 0 {
		return &SearchResult{
			Query:     plan.RawQuery,
			Results:   []ranker.ScoredDoc{},
			TermStats: map[string]int{},
		}, nil
	}
	ev := &evaluation{
		exec:      e,
		reader:    r,
		ords:      newOrdinals(),
		shard:     shard,
		method:    e.methods.Method(),
		termStats: make(map[string]int),
		params: ranker.RankParams{
			TotalDocs:    int64(r.MaxDoc()),
			AvgDocLength: r.AvgDocLength(),
		},
	}

	var (
		scored      []map[string]float64
		filters     *docSet
		filterBoost float64
	)
	for _, clause := range plan.Clauses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := ev.clause(clause)
		if err != nil {
			return nil, err
		}
		// Members of an AND of filters match every filter, so the set is
		// intersected first and scored once.
		if h.set != nil && plan.Type == parser.QueryAND {
			if filters == nil {
				filters = h.set
			} else {
				filters = filters.and(h.set)
			}
			filterBoost += h.boost
			continue
		}
		scored = append(scored, h.materialize())
	}

	var (
		excludedSet    *docSet
		excludedScores []map[string]float64
	)
	for _, clause := range plan.Excludes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := ev.clause(clause)
		if err != nil {
			return nil, err
		}
		if h.set == nil {
			excludedScores = append(excludedScores, h.scores)
		} else if excludedSet == nil {
			excludedSet = h.set
		} else {
			excludedSet = excludedSet.or(h.set)
		}
	}

	if filters != nil {
		if excludedSet != nil {
			filters = filters.andNot(excludedSet)
		}
		scored = append(scored, filters.scores(filterBoost))
	}
	var candidates map[string]float64
	for i, scores := range scored {
		switch {
		case i == 0:
			candidates = scores
		case plan.Type == parser.QueryAND:
			candidates = intersect(candidates, scores)
		default:
			candidates = union(candidates, scores)
		}
	}
	for _, ex := range excludedScores {
		for docID := range ex {
			delete(candidates, docID)
		}
	}
	if excludedSet != nil && filters == nil {
		excludedSet.each(func(docID string) { delete(candidates, docID) })
	}

	ranked := ranker.Rank(candidates, limit)
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"shard", shard,
		"clauses", len(plan.Clauses),
		"rewrites", len(ev.rewrites),
		"candidates", len(candidates),
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		TotalHits: len(candidates),
		Results:   ranked,
		TermStats: ev.termStats,
		Rewrites:  ev.rewrites,
	}, nil
}

// Explain rewrites every pattern of plan against the current snapshot and
// reports the decisions without executing anything.
func (e *Executor) Explain(ctx context.Context, plan *parser.QueryPlan) ([]RewriteReport, error) {
	return e.ExplainOn(ctx, 0, e.engine.Snapshot(), plan)
}

func (e *Executor) ExplainOn(ctx context.Context, shard int, r index.Reader, plan *parser.QueryPlan) ([]RewriteReport, error) {
	method := e.methods.Method()
	reports := make([]RewriteReport, 0)
	for _, mtq := range plan.Patterns() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, d, err := e.rewrite(method, r, mtq)
		if err != nil {
			return nil, fmt.Errorf("shard %d: %w", shard, err)
		}
		reports = append(reports, RewriteReport{Shard: shard, Decision: d})
	}
	return reports, nil
}

func (e *Executor) rewrite(m rewrite.Method, r index.Reader, q query.MultiTermQuery) (query.Query, rewrite.Decision, error) {
	var (
		result query.Query
		d      rewrite.Decision
		err    error
	)
	if e.cache != nil {
		result, d, err = e.cache.Apply(m, r, q)
	} else {
		result, d, err = rewrite.Apply(m, r, q)
	}
	if err != nil {
		return nil, rewrite.Decision{}, fmt.Errorf("rewriting %s: %w", q.String(""), err)
	}
	if e.recorder != nil {
		e.recorder.ObserveRewrite(d)
	}
	return result, d, nil
}

// evaluation holds the state of one ExecuteOn call.
type evaluation struct {
	exec      *Executor
	reader    Searchable
	ords      *ordinals
	shard     int
	method    rewrite.Method
	params    ranker.RankParams
	termStats map[string]int
	rewrites  []RewriteReport
}

// hits is the outcome of one plan clause: either scored documents, or a
// constant-score filter kept as a set until it has to be scored.
type hits struct {
	scores map[string]float64
	set    *docSet
	boost  float64
}

func (h hits) materialize() map[string]float64 {
	if h.set != nil {
		return h.set.scores(h.boost)
	}
	return h.scores
}

func (ev *evaluation) clause(c parser.Clause) (hits, error) {
	q := c.Query
	if mtq, ok := c.MultiTerm(); ok {
		rewritten, d, err := ev.exec.rewrite(ev.method, ev.reader, mtq)
		if err != nil {
			return hits{}, fmt.Errorf("shard %d: %w", ev.shard, err)
		}
		ev.rewrites = append(ev.rewrites, RewriteReport{Shard: ev.shard, Decision: d})
		q = rewritten
	}
	if csq, ok := q.(*query.ConstantScoreQuery); ok {
		if f, ok := csq.Inner().(*query.MultiTermFilter); ok {
			set, err := ev.filter(f)
			if err != nil {
				return hits{}, fmt.Errorf("shard %d, clause %q: %w", ev.shard, c.Raw, err)
			}
			return hits{set: set, boost: float64(csq.Boost())}, nil
		}
	}
	scores, err := ev.eval(q)
	if err != nil {
		return hits{}, fmt.Errorf("shard %d, clause %q: %w", ev.shard, c.Raw, err)
	}
	return hits{scores: scores}, nil
}

func (ev *evaluation) eval(q query.Query) (map[string]float64, error) {
	switch q := q.(type) {
	case *query.TermQuery:
		return ev.term(q)
	case *query.BooleanQuery:
		return ev.boolean(q)
	case *query.ConstantScoreQuery:
		docs, err := ev.eval(q.Inner())
		if err != nil {
			return nil, err
		}
		boost := float64(q.Boost())
		for docID := range docs {
			docs[docID] = boost
		}
		return docs, nil
	case *query.MultiTermFilter:
		set, err := ev.filter(q)
		if err != nil {
			return nil, err
		}
		return set.scores(0), nil
	case query.MultiTermQuery:
		rewritten, _, err := ev.exec.rewrite(ev.method, ev.reader, q)
		if err != nil {
			return nil, err
		}
		return ev.eval(rewritten)
	default:
		return nil, fmt.Errorf("unsupported query type %T", q)
	}
}

func (ev *evaluation) term(q *query.TermQuery) (map[string]float64, error) {
	postings, err := ev.reader.Postings(q.Term())
	if err != nil {
		return nil, err
	}
	ev.termStats[q.Term().String()] = len(postings)
	return ranker.TermScores(postings, ev.params, func(docID string) ranker.DocInfo {
		return ranker.DocInfo{DocLength: ev.reader.DocLength(docID)}
	}, float64(q.Boost())), nil
}

func (ev *evaluation) boolean(q *query.BooleanQuery) (map[string]float64, error) {
	var (
		should   map[string]float64
		must     map[string]float64
		hasMust  bool
		excluded []map[string]float64
	)
	for _, c := range q.Clauses() {
		scores, err := ev.eval(c.Query)
		if err != nil {
			return nil, err
		}
		switch c.Occur {
		case query.Must:
			if !hasMust {
				must, hasMust = scores, true
			} else {
				must = intersect(must, scores)
			}
		case query.MustNot:
			excluded = append(excluded, scores)
		default:
			should = union(should, scores)
		}
	}
	result := should
	if hasMust {
		result = must
		for docID, s := range should {
			if _, ok := result[docID]; ok {
				result[docID] += s
			}
		}
	}
	if result == nil {
		result = make(map[string]float64)
	}
	for _, ex := range excluded {
		for docID := range ex {
			delete(result, docID)
		}
	}
	if boost := float64(q.Boost()); boost != 1 {
		for docID := range result {
			result[docID] *= boost
		}
	}
	return result, nil
}

// filter enumerates every term of the pattern in each source and ORs the
// per-term posting bitmaps into one set.
func (ev *evaluation) filter(f *query.MultiTermFilter) (*docSet, error) {
	var perTerm []*roaring.Bitmap
	terms := 0
	for _, src := range sources(ev.reader) {
		enum, err := f.Query().Enum(src)
		if err != nil {
			return nil, err
		}
		for enum.Next() {
			postings, err := src.Postings(enum.Term())
			if err != nil {
				return nil, err
			}
			terms++
			perTerm = append(perTerm, ev.ords.bitmap(postings))
		}
		if err := enum.Err(); err != nil {
			return nil, err
		}
	}
	bits := roaring.New()
	if len(perTerm) > 0 {
		bits = roaring.FastOr(perTerm...)
	}
	set := ev.ords.set(bits)
	ev.termStats[f.String("")] = terms
	ev.exec.logger.Debug("filter evaluated",
		"pattern", f.String(""),
		"shard", ev.shard,
		"terms", terms,
		"docs", set.cardinality(),
	)
	return set, nil
}

func intersect(a, b map[string]float64) map[string]float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(map[string]float64, len(a))
	for docID, s := range a {
		if t, ok := b[docID]; ok {
			out[docID] = s + t
		}
	}
	return out
}

func union(a, b map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(a)+len(b))
	for docID, s := range a {
		out[docID] = s
	}
	for docID, s := range b {
		out[docID] += s
	}
	return out
}

var _ Searchable = (*indexer.Snapshot)(nil)
