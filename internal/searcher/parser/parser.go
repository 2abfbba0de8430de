package parser

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/errors"
)

const DefaultField = "body"

type QueryType int

const (
	QueryAND QueryType = iota
	QueryOR
)

func (t QueryType) String() string {
	if t == QueryOR {
		return "OR"
	}
	return "AND"
}

// Clause is one parsed query word. Query is a *query.TermQuery or one of
// the multi-term pattern queries.
type Clause struct {
	Query query.Query
	Raw   string
}

// MultiTerm reports whether the clause needs a rewrite before execution.
func (c Clause) MultiTerm() (query.MultiTermQuery, bool) {
	mtq, ok := c.Query.(query.MultiTermQuery)
	return mtq, ok
}

type QueryPlan struct {
	Clauses  []Clause
	Type     QueryType
	Excludes []Clause
	RawQuery string
}

// Patterns lists the clauses that need a rewrite, excludes included.
func (p *QueryPlan) Patterns() []query.MultiTermQuery {
	var out []query.MultiTermQuery
	for _, c := range append(append([]Clause(nil), p.Clauses...), p.Excludes...) {
		if mtq, ok := c.MultiTerm(); ok {
			out = append(out, mtq)
		}
	}
	return out
}

type Parser struct {
	defaultField string
	analyzer     *tokenizer.Analyzer
}

func New(defaultField string, analyzer *tokenizer.Analyzer) *Parser {
	if defaultField == "" {
		defaultField = DefaultField
	}
	if analyzer == nil {
		analyzer = tokenizer.Default
	}
	return &Parser{defaultField: defaultField, analyzer: analyzer}
}

var defaultParser = New(DefaultField, nil)

// Parse parses with the default field and analyzer.
func Parse(raw string) (*QueryPlan, error) {
	return defaultParser.Parse(raw)
}

// Parse turns a query string into a plan. Words are implicitly ANDed; a bare
// OR anywhere switches the whole query to OR and NOT excludes the next word.
//
//	title:go          term in a named field
//	sea*              prefix
//	s?arch*           wildcard
//	[alpha TO omega]  inclusive range, {..} exclusive, * for an open bound
//	search^2.5        boost
func (p *Parser) Parse(raw string) (*QueryPlan, error) {
	plan := &QueryPlan{
		Clauses:  make([]Clause, 0),
		Excludes: make([]Clause, 0),
		Type:     QueryAND,
		RawQuery: raw,
	}
	if strings.TrimSpace(raw) == "" {
		return plan, nil
	}
	words, err := splitWords(raw)
	if err != nil {
		return nil, err
	}
	excludeNext := false
	for _, word := range words {
		switch strings.ToUpper(word) {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		clauses, err := p.parseWord(word)
		if err != nil {
			return nil, err
		}
		if len(clauses) == 0 {
			continue
		}
		if excludeNext {
			plan.Excludes = append(plan.Excludes, clauses...)
			excludeNext = false
		} else {
			plan.Clauses = append(plan.Clauses, clauses...)
		}
	}
	return plan, nil
}

func (p *Parser) parseWord(word string) ([]Clause, error) {
	field, text := p.defaultField, word
	if i := strings.IndexByte(word, ':'); i > 0 && !strings.ContainsAny(word[:i], "[{*?^") {
		field, text = word[:i], word[i+1:]
	}
	text, boost, err := splitBoost(text)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	var clauses []Clause
	switch {
	case text[0] == '[' || text[0] == '{':
		q, err := parseRange(field, text)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, Clause{Query: q, Raw: word})
	case strings.ContainsAny(text, "*?"):
		pattern := tokenizer.Normalize(text)
		var q query.Query
		if isPrefix(pattern) {
			q = query.NewPrefixQuery(field, strings.TrimSuffix(pattern, "*"))
		} else {
			q = query.NewWildcardQuery(field, pattern)
		}
		clauses = append(clauses, Clause{Query: q, Raw: word})
	default:
		for _, tok := range p.analyzer.Tokenize(text) {
			clauses = append(clauses, Clause{
				Query: query.NewTermQuery(index.Term{Field: field, Text: tok.Term}),
				Raw:   word,
			})
		}
	}
	for _, c := range clauses {
		c.Query.SetBoost(boost)
	}
	return clauses, nil
}

// isPrefix reports whether the only wildcard is a single trailing '*'.
func isPrefix(pattern string) bool {
	return len(pattern) > 1 && strings.IndexAny(pattern, "*?") == len(pattern)-1 && pattern[len(pattern)-1] == '*'
}

func splitBoost(text string) (string, float32, error) {
	i := strings.LastIndexByte(text, '^')
	if i < 0 {
		return text, 1, nil
	}
	b, err := strconv.ParseFloat(text[i+1:], 32)
	if err != nil || b < 0 {
		return "", 0, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "invalid boost in %q", text)
	}
	return text[:i], float32(b), nil
}

func parseRange(field, text string) (query.Query, error) {
	last := text[len(text)-1]
	if last != ']' && last != '}' {
		return nil, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "unterminated range %q", text)
	}
	parts := strings.Fields(text[1 : len(text)-1])
	if len(parts) != 3 || !strings.EqualFold(parts[1], "TO") {
		return nil, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "range must be of the form [lower TO upper], got %q", text)
	}
	return query.NewTermRangeQuery(field,
		rangeBound(parts[0]),
		rangeBound(parts[2]),
		text[0] == '[',
		last == ']',
	), nil
}

func rangeBound(s string) string {
	if s == "*" {
		return ""
	}
	return tokenizer.Normalize(s)
}

// splitWords splits on whitespace but keeps a bracketed range as one word.
func splitWords(raw string) ([]string, error) {
	fields := strings.Fields(raw)
	words := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		w := fields[i]
		if !opensRange(w) {
			words = append(words, w)
			continue
		}
		group := []string{w}
		for !strings.ContainsAny(group[len(group)-1], "]}") {
			i++
			if i >= len(fields) {
				return nil, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "unterminated range starting at %q", w)
			}
			group = append(group, fields[i])
		}
		words = append(words, strings.Join(group, " "))
	}
	return words, nil
}

func opensRange(w string) bool {
	if i := strings.IndexByte(w, ':'); i > 0 {
		w = w[i+1:]
	}
	return strings.HasPrefix(w, "[") || strings.HasPrefix(w, "{")
}
