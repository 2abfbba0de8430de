package parser

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clauseStrings(clauses []Clause) []string {
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, c.Query.String(""))
	}
	return out
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		typ      QueryType
		clauses  []string
		excludes []string
	}{
		{"empty", "   ", QueryAND, []string{}, []string{}},
		{"plain terms are analyzed", "Searching Engines", QueryAND, []string{"body:search", "body:engin"}, []string{}},
		{"stop words dropped", "the search", QueryAND, []string{"body:search"}, []string{}},
		{"or", "alpha OR beta", QueryOR, []string{"body:alpha", "body:beta"}, []string{}},
		{"not", "alpha NOT beta", QueryAND, []string{"body:alpha"}, []string{"body:beta"}},
		{"field", "title:Go", QueryAND, []string{"title:go"}, []string{}},
		{"prefix", "Sea*", QueryAND, []string{"body:sea*"}, []string{}},
		{"wildcard", "s?arch*", QueryAND, []string{"body:s?arch*"}, []string{}},
		{"lone star is a wildcard", "*", QueryAND, []string{"body:*"}, []string{}},
		{"fielded prefix", "title:dist*", QueryAND, []string{"title:dist*"}, []string{}},
		{"inclusive range", "[Alpha TO omega]", QueryAND, []string{"body:[alpha TO omega]"}, []string{}},
		{"exclusive open range", "title:{m TO *}", QueryAND, []string{"title:{m TO *}"}, []string{}},
		{"boost", "search^2.5 sea*^3", QueryAND, []string{"body:search^2.5", "body:sea*^3"}, []string{}},
		{"excluded pattern", "go NOT jav*", QueryAND, []string{"body:go"}, []string{"body:jav*"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, plan.Type)
			assert.Equal(t, tt.input, plan.RawQuery)
			assert.Equal(t, tt.clauses, clauseStrings(plan.Clauses))
			assert.Equal(t, tt.excludes, clauseStrings(plan.Excludes))
		})
	}
}

func TestParse_PatternsNeedRewrite(t *testing.T) {
	plan, err := Parse("go sea* NOT [a TO b]")
	require.NoError(t, err)

	patterns := plan.Patterns()
	require.Len(t, patterns, 2)
	assert.IsType(t, &query.PrefixQuery{}, patterns[0])
	assert.IsType(t, &query.TermRangeQuery{}, patterns[1])

	_, ok := plan.Clauses[0].MultiTerm()
	assert.False(t, ok)
}

func TestParse_DefaultField(t *testing.T) {
	plan, err := New("title", nil).Parse("go*")
	require.NoError(t, err)
	mtq, ok := plan.Clauses[0].MultiTerm()
	require.True(t, ok)
	assert.Equal(t, "title", mtq.Field())
}

func TestParse_Errors(t *testing.T) {
	for _, input := range []string{
		"[a TO b",
		"[a b]",
		"search^x",
		"search^-1",
		"{a TO}",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
			assert.Equal(t, 400, apperrors.HTTPStatusCode(err))
		})
	}
}
