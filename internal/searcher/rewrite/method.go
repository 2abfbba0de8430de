// Package rewrite turns multi-term pattern queries into primitive queries
// the executor can run.
//
// ConstantScoreAuto picks between an explicit constant-score disjunction and
// a lazy filter by sampling the pattern's terms against two thresholds. The
// strategy values are immutable; reconfiguring means building a new one.
package rewrite

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/query"
)

// Method rewrites a multi-term query against a reader.
type Method interface {
	Rewrite(r index.Reader, q query.MultiTermQuery) (query.Query, error)
}

// Explainer is a Method that can also report how it decided.
type Explainer interface {
	Method
	RewriteExplained(r index.Reader, q query.MultiTermQuery) (query.Query, Decision, error)
}

// Keyed methods expose a stable identity used for cache keys. Two methods
// with equal keys must produce the same rewrite for the same input.
type Keyed interface {
	Method
	Key() string
}

// TermCollector receives the terms of a pattern in enumeration order.
// Returning false stops the enumeration.
type TermCollector interface {
	Collect(t index.Term) (bool, error)
}

// CollectTerms feeds every term q matches in r to c until c declines more.
func CollectTerms(r index.Reader, q query.MultiTermQuery, c TermCollector) error {
	enum, err := q.Enum(r)
	if err != nil {
		return fmt.Errorf("enumerating terms of %s: %w", q.String(""), err)
	}
	for enum.Next() {
		t := enum.Term()
		more, err := c.Collect(t)
		if err != nil {
			return fmt.Errorf("collecting term %s: %w", t, err)
		}
		if !more {
			return nil
		}
	}
	if err := enum.Err(); err != nil {
		return fmt.Errorf("enumerating terms of %s: %w", q.String(""), err)
	}
	return nil
}

// Apply runs m and returns its decision when it has one.
func Apply(m Method, r index.Reader, q query.MultiTermQuery) (query.Query, Decision, error) {
	if e, ok := m.(Explainer); ok {
		return e.RewriteExplained(r, q)
	}
	result, err := m.Rewrite(r, q)
	if err != nil {
		return nil, Decision{}, err
	}
	return result, Decision{Pattern: q.String(""), Strategy: StrategyCustom}, nil
}
