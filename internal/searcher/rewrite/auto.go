package rewrite

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/query"
)

const (
	// DefaultTermCountCutoff: past this many terms the filter is faster.
	DefaultTermCountCutoff = 350
	// DefaultDocCountPercent: past 0.1% of the documents the filter is faster.
	DefaultDocCountPercent = 0.1
)

// ConstantScoreAuto rewrites a pattern into a constant-score disjunction of
// its terms when it is small, and delegates to a fallback (a lazy filter by
// default) as soon as it collects too many terms or the terms cover too many
// documents.
//
// A ConstantScoreAuto is immutable and safe for concurrent use. Its identity
// is the pair (TermCountCutoff, DocCountPercent); the fallback, clause limit
// and logger take no part in Equal, Hash or Key.
type ConstantScoreAuto struct {
	termCountCutoff int
	docCountPercent float64
	fallback        Method
	clauseLimit     func() int
	logger          *slog.Logger
}

var _ Explainer = (*ConstantScoreAuto)(nil)

type Option func(*ConstantScoreAuto)

// WithTermCountCutoff sets the number of collected terms at which the
// fallback is used. Values are taken as given.
func WithTermCountCutoff(n int) Option {
	return func(s *ConstantScoreAuto) { s.termCountCutoff = n }
}

// WithDocCountPercent sets the share of MaxDoc, in percent (0 to 100), of
// visited documents at which the fallback is used. Values outside that
// range are not rejected.
func WithDocCountPercent(p float64) Option {
	return func(s *ConstantScoreAuto) { s.docCountPercent = p }
}

func WithFallback(m Method) Option {
	return func(s *ConstantScoreAuto) { s.fallback = m }
}

// WithClauseLimit adds a per-rewriter clause limit. It can only lower the
// term limit: query.MaxClauseCount is always applied as well.
func WithClauseLimit(limit func() int) Option {
	return func(s *ConstantScoreAuto) { s.clauseLimit = limit }
}

func NewConstantScoreAuto(opts ...Option) *ConstantScoreAuto {
	s := &ConstantScoreAuto{
		termCountCutoff: DefaultTermCountCutoff,
		docCountPercent: DefaultDocCountPercent,
		fallback:        ConstantScoreFilter{},
		clauseLimit:     query.MaxClauseCount,
		logger:          slog.Default().With("component", "multiterm-rewrite"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ConstantScoreAuto) TermCountCutoff() int     { return s.termCountCutoff }
func (s *ConstantScoreAuto) DocCountPercent() float64 { return s.docCountPercent }
func (s *ConstantScoreAuto) Fallback() Method         { return s.fallback }

// With returns a copy of s with opts applied. s itself is unchanged.
func (s *ConstantScoreAuto) With(opts ...Option) *ConstantScoreAuto {
	next := *s
	for _, opt := range opts {
		opt(&next)
	}
	return &next
}

// WithSettings returns a copy of s using the given thresholds.
func (s *ConstantScoreAuto) WithSettings(termCountCutoff int, docCountPercent float64) *ConstantScoreAuto {
	return s.With(WithTermCountCutoff(termCountCutoff), WithDocCountPercent(docCountPercent))
}

func (s *ConstantScoreAuto) Rewrite(r index.Reader, q query.MultiTermQuery) (query.Query, error) {
	result, _, err := s.RewriteExplained(r, q)
	return result, err
}

// Explain performs the rewrite and reports only the decision.
func (s *ConstantScoreAuto) Explain(r index.Reader, q query.MultiTermQuery) (Decision, error) {
	_, d, err := s.RewriteExplained(r, q)
	return d, err
}

func (s *ConstantScoreAuto) RewriteExplained(r index.Reader, q query.MultiTermQuery) (query.Query, Decision, error) {
	docCountCutoff := docCutoff(s.docCountPercent, r.MaxDoc())
	termCountLimit := min(query.MaxClauseCount(), s.clauseLimit(), s.termCountCutoff)

	col := newCutOffCollector(r, docCountCutoff, termCountLimit)
	if err := CollectTerms(r, q, col); err != nil {
		return nil, Decision{}, fmt.Errorf("auto rewrite of %s: %w", q.String(""), err)
	}

	d := Decision{
		Pattern:        q.String(""),
		Reason:         col.reason,
		DocCountCutoff: docCountCutoff,
		TermCountLimit: termCountLimit,
		TermsCollected: len(col.pending),
		DocVisitCount:  col.docVisitCount,
	}

	if col.hasCutOff {
		d.Strategy = StrategyFilter
		s.logger.Debug("pattern cut off, using fallback",
			"pattern", d.Pattern,
			"reason", d.Reason,
			"terms", d.TermsCollected,
			"doc_visit_count", d.DocVisitCount,
		)
		result, err := s.fallback.Rewrite(r, q)
		if err != nil {
			return nil, Decision{}, fmt.Errorf("fallback rewrite of %s: %w", d.Pattern, err)
		}
		return result, d, nil
	}

	var result query.Query
	if len(col.pending) == 0 {
		d.Strategy = StrategyEmpty
		result = topLevelQuery()
	} else {
		bq := topLevelQuery()
		for _, t := range col.pending {
			if err := addClause(bq, t, 1); err != nil {
				return nil, Decision{}, fmt.Errorf("auto rewrite of %s: %w", d.Pattern, err)
			}
		}
		csq := query.NewConstantScoreQuery(bq)
		csq.SetBoost(q.Boost())
		d.Strategy = StrategyConstantBool
		result = csq
	}
	q.IncTotalNumberOfTerms(len(col.pending))
	s.logger.Debug("pattern rewritten",
		"pattern", d.Pattern,
		"strategy", d.Strategy,
		"terms", d.TermsCollected,
	)
	return result, d, nil
}

func topLevelQuery() *query.BooleanQuery {
	return query.NewBooleanQuery(true)
}

// addClause has the shape of a scoring collector's clause hook, which takes
// a per-term boost. The disjunction is wrapped in a constant score, so the
// boost is accepted and dropped.
func addClause(top *query.BooleanQuery, t index.Term, _ float32) error {
	return top.Add(query.NewTermQuery(t), query.Should)
}

// docCutoff is floor(percent/100 * maxDoc), saturated to the int range with
// NaN mapped to zero.
func docCutoff(percent float64, maxDoc int) int {
	v := math.Floor(percent / 100 * float64(maxDoc))
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt:
		return math.MaxInt
	case v <= math.MinInt:
		return math.MinInt
	}
	return int(v)
}
