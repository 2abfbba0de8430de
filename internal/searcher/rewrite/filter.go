package rewrite

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/query"
)

// ConstantScoreFilter wraps the pattern in a lazy filter without looking at
// the index. Its documents all score the pattern's boost.
type ConstantScoreFilter struct{}

var _ Explainer = ConstantScoreFilter{}

func (ConstantScoreFilter) Rewrite(_ index.Reader, q query.MultiTermQuery) (query.Query, error) {
	csq := query.NewConstantScoreQuery(query.NewMultiTermFilter(q))
	csq.SetBoost(q.Boost())
	return csq, nil
}

func (f ConstantScoreFilter) RewriteExplained(r index.Reader, q query.MultiTermQuery) (query.Query, Decision, error) {
	result, err := f.Rewrite(r, q)
	return result, Decision{Pattern: q.String(""), Strategy: StrategyFilter}, err
}

func (ConstantScoreFilter) Key() string { return "constant_score_filter" }

// ScoringBoolean expands every matching term into a scored clause. It has
// no cutoff and fails with ErrTooManyClauses once the clause ceiling is hit.
type ScoringBoolean struct{}

var _ Explainer = ScoringBoolean{}

func (b ScoringBoolean) Rewrite(r index.Reader, q query.MultiTermQuery) (query.Query, error) {
	result, _, err := b.RewriteExplained(r, q)
	return result, err
}

func (ScoringBoolean) RewriteExplained(r index.Reader, q query.MultiTermQuery) (query.Query, Decision, error) {
	col := &expandingCollector{reader: r, top: query.NewBooleanQuery(false)}
	if err := CollectTerms(r, q, col); err != nil {
		return nil, Decision{}, fmt.Errorf("scoring rewrite of %s: %w", q.String(""), err)
	}
	col.top.SetBoost(q.Boost())
	q.IncTotalNumberOfTerms(col.terms)
	return col.top, Decision{
		Pattern:        q.String(""),
		Strategy:       StrategyScoringBoolean,
		TermsCollected: col.terms,
		DocVisitCount:  col.docVisitCount,
		TermCountLimit: query.MaxClauseCount(),
	}, nil
}

func (ScoringBoolean) Key() string { return "scoring_boolean" }

type expandingCollector struct {
	reader        index.Reader
	top           *query.BooleanQuery
	terms         int
	docVisitCount int
}

func (c *expandingCollector) Collect(t index.Term) (bool, error) {
	if err := c.top.Add(query.NewTermQuery(t), query.Should); err != nil {
		return false, err
	}
	df, err := c.reader.DocFreq(t)
	if err != nil {
		return false, err
	}
	c.terms++
	c.docVisitCount += df
	return true, nil
}
