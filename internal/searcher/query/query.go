// Package query defines the query tree produced by the parser and the
// rewrite strategies and consumed by the executor. Values are built by one
// goroutine and then shared read-only.
package query

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/errors"
)

// DefaultMaxClauseCount is the process-wide ceiling on boolean clauses.
const DefaultMaxClauseCount = 1024

var maxClauseCount atomic.Int64

func init() {
	maxClauseCount.Store(DefaultMaxClauseCount)
}

// MaxClauseCount returns the process-wide ceiling on the number of clauses a
// BooleanQuery accepts.
func MaxClauseCount() int {
	return int(maxClauseCount.Load())
}

// SetMaxClauseCount changes the ceiling. It is meant to be called once at
// startup.
func SetMaxClauseCount(n int) {
	maxClauseCount.Store(int64(n))
}

// Query is any node of a query tree.
type Query interface {
	Boost() float32
	SetBoost(b float32)
	// String renders the query, omitting the field name when it equals field.
	String(field string) string
}

type baseQuery struct {
	boost float32
}

func newBase() baseQuery { return baseQuery{boost: 1} }

func (q *baseQuery) Boost() float32     { return q.boost }
func (q *baseQuery) SetBoost(b float32) { q.boost = b }

func boostSuffix(b float32) string {
	if b == 1 {
		return ""
	}
	return fmt.Sprintf("^%v", b)
}

func fieldPrefix(queryField, field string) string {
	if queryField == field {
		return ""
	}
	return queryField + ":"
}

// TermQuery matches documents containing exactly one term.
type TermQuery struct {
	baseQuery
	term index.Term
}

func NewTermQuery(t index.Term) *TermQuery {
	return &TermQuery{baseQuery: newBase(), term: t}
}

func (q *TermQuery) Term() index.Term { return q.term }

func (q *TermQuery) String(field string) string {
	return fieldPrefix(q.term.Field, field) + q.term.Text + boostSuffix(q.boost)
}

type Occur int

const (
	Must Occur = iota + 1
	Should
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Must:
		return "+"
	case MustNot:
		return "-"
	default:
		return ""
	}
}

type Clause struct {
	Query Query
	Occur Occur
}

// BooleanQuery combines clauses. With only Should clauses it is a
// disjunction; with no clauses it matches nothing.
type BooleanQuery struct {
	baseQuery
	clauses      []Clause
	disableCoord bool
}

func NewBooleanQuery(disableCoord bool) *BooleanQuery {
	return &BooleanQuery{baseQuery: newBase(), disableCoord: disableCoord}
}

// Add appends a clause, failing once the process-wide ceiling is reached.
func (q *BooleanQuery) Add(sub Query, occur Occur) error {
	if len(q.clauses) >= MaxClauseCount() {
		return fmt.Errorf("adding clause %d: %w (max %d)", len(q.clauses)+1, apperrors.ErrTooManyClauses, MaxClauseCount())
	}
	q.clauses = append(q.clauses, Clause{Query: sub, Occur: occur})
	return nil
}

func (q *BooleanQuery) Clauses() []Clause  { return q.clauses }
func (q *BooleanQuery) DisableCoord() bool { return q.disableCoord }

func (q *BooleanQuery) String(field string) string {
	var buf strings.Builder
	needParens := q.boost != 1
	if needParens {
		buf.WriteByte('(')
	}
	for i, c := range q.clauses {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(c.Occur.String())
		if _, nested := c.Query.(*BooleanQuery); nested {
			buf.WriteByte('(')
			buf.WriteString(c.Query.String(field))
			buf.WriteByte(')')
		} else {
			buf.WriteString(c.Query.String(field))
		}
	}
	if needParens {
		buf.WriteByte(')')
	}
	buf.WriteString(boostSuffix(q.boost))
	return buf.String()
}

// ConstantScoreQuery gives every document matched by Inner the same score,
// equal to its own boost.
type ConstantScoreQuery struct {
	baseQuery
	inner Query
}

func NewConstantScoreQuery(inner Query) *ConstantScoreQuery {
	return &ConstantScoreQuery{baseQuery: newBase(), inner: inner}
}

func (q *ConstantScoreQuery) Inner() Query { return q.inner }

func (q *ConstantScoreQuery) String(field string) string {
	return "ConstantScore(" + q.inner.String(field) + ")" + boostSuffix(q.boost)
}
