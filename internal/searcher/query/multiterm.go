package query

import (
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
)

// MultiTermQuery matches any term of one field accepted by a pattern. It is
// never executed directly; a rewrite strategy turns it into a primitive
// query first.
type MultiTermQuery interface {
	Query
	Field() string
	// Enum lists the matching terms of r in term order.
	Enum(r index.Reader) (index.TermsEnum, error)
	// IncTotalNumberOfTerms adds n to a lifetime diagnostic counter of terms
	// gathered by rewrites. Safe for concurrent use.
	IncTotalNumberOfTerms(n int)
	TotalNumberOfTerms() int
}

type multiTermBase struct {
	baseQuery
	field      string
	totalTerms atomic.Int64
}

func (q *multiTermBase) Field() string { return q.field }

func (q *multiTermBase) IncTotalNumberOfTerms(n int) {
	q.totalTerms.Add(int64(n))
}

func (q *multiTermBase) TotalNumberOfTerms() int {
	return int(q.totalTerms.Load())
}

// PrefixQuery matches terms starting with a prefix.
type PrefixQuery struct {
	multiTermBase
	prefix string
}

func NewPrefixQuery(field, prefix string) *PrefixQuery {
	return &PrefixQuery{multiTermBase: multiTermBase{baseQuery: newBase(), field: field}, prefix: prefix}
}

func (q *PrefixQuery) Prefix() string { return q.prefix }

func (q *PrefixQuery) Enum(r index.Reader) (index.TermsEnum, error) {
	in, err := r.Terms(q.field, q.prefix)
	if err != nil {
		return nil, err
	}
	return index.Filter(in, func(t index.Term) index.AcceptStatus {
		if !strings.HasPrefix(t.Text, q.prefix) {
			return index.End
		}
		return index.Accept
	}), nil
}

func (q *PrefixQuery) String(field string) string {
	return fieldPrefix(q.field, field) + q.prefix + "*" + boostSuffix(q.boost)
}

// WildcardQuery matches terms against a pattern where '*' stands for any
// run of characters and '?' for exactly one.
type WildcardQuery struct {
	multiTermBase
	pattern string
	literal string
	re      *regexp.Regexp
}

func NewWildcardQuery(field, pattern string) *WildcardQuery {
	var expr strings.Builder
	expr.WriteString(`(?s)^`)
	for _, r := range pattern {
		switch r {
		case '*':
			expr.WriteString(".*")
		case '?':
			expr.WriteString(".")
		default:
			expr.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	expr.WriteString("$")

	literal := pattern
	if i := strings.IndexAny(pattern, "*?"); i >= 0 {
		literal = pattern[:i]
	}
	return &WildcardQuery{
		multiTermBase: multiTermBase{baseQuery: newBase(), field: field},
		pattern:       pattern,
		literal:       literal,
		re:            regexp.MustCompile(expr.String()),
	}
}

func (q *WildcardQuery) Pattern() string { return q.pattern }

func (q *WildcardQuery) Enum(r index.Reader) (index.TermsEnum, error) {
	in, err := r.Terms(q.field, q.literal)
	if err != nil {
		return nil, err
	}
	return index.Filter(in, func(t index.Term) index.AcceptStatus {
		if !strings.HasPrefix(t.Text, q.literal) {
			return index.End
		}
		if q.re.MatchString(t.Text) {
			return index.Accept
		}
		return index.Skip
	}), nil
}

func (q *WildcardQuery) String(field string) string {
	return fieldPrefix(q.field, field) + q.pattern + boostSuffix(q.boost)
}

// TermRangeQuery matches terms between two bounds. An empty bound is open.
type TermRangeQuery struct {
	multiTermBase
	lower, upper               string
	includeLower, includeUpper bool
}

func NewTermRangeQuery(field, lower, upper string, includeLower, includeUpper bool) *TermRangeQuery {
	return &TermRangeQuery{
		multiTermBase: multiTermBase{baseQuery: newBase(), field: field},
		lower:         lower,
		upper:         upper,
		includeLower:  includeLower,
		includeUpper:  includeUpper,
	}
}

func (q *TermRangeQuery) Enum(r index.Reader) (index.TermsEnum, error) {
	in, err := r.Terms(q.field, q.lower)
	if err != nil {
		return nil, err
	}
	return index.Filter(in, func(t index.Term) index.AcceptStatus {
		if q.lower != "" && !q.includeLower && t.Text == q.lower {
			return index.Skip
		}
		if q.upper != "" {
			if c := strings.Compare(t.Text, q.upper); c > 0 || (c == 0 && !q.includeUpper) {
				return index.End
			}
		}
		return index.Accept
	}), nil
}

func (q *TermRangeQuery) String(field string) string {
	var buf strings.Builder
	buf.WriteString(fieldPrefix(q.field, field))
	if q.includeLower {
		buf.WriteByte('[')
	} else {
		buf.WriteByte('{')
	}
	buf.WriteString(orStar(q.lower))
	buf.WriteString(" TO ")
	buf.WriteString(orStar(q.upper))
	if q.includeUpper {
		buf.WriteByte(']')
	} else {
		buf.WriteByte('}')
	}
	buf.WriteString(boostSuffix(q.boost))
	return buf.String()
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// MultiTermFilter is the lazy bitset form of a multi-term query: the
// executor enumerates its terms and marks their documents at execution
// time instead of building one clause per term. Its own boost is ignored;
// wrap it in a ConstantScoreQuery to score it.
type MultiTermFilter struct {
	baseQuery
	query MultiTermQuery
}

func NewMultiTermFilter(q MultiTermQuery) *MultiTermFilter {
	return &MultiTermFilter{baseQuery: newBase(), query: q}
}

func (f *MultiTermFilter) Query() MultiTermQuery { return f.query }

func (f *MultiTermFilter) String(field string) string {
	return "MultiTermFilter(" + f.query.String(field) + ")"
}
