package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_StopWordsAndPositions(t *testing.T) {
	tokens := Tokenize("The Search of a distributed index")

	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, tok.Term)
	}
	assert.Equal(t, []string{"search", "distribut", "index"}, terms)
	assert.Equal(t, 2, tokens[2].Position)
}

func TestAnalyzer_Options(t *testing.T) {
	a := NewAnalyzer(WithoutStemming(), WithStopWords("foo"), WithMinLength(3))

	tokens := a.Tokenize("foo running is ok")
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, tok.Term)
	}
	assert.Equal(t, []string{"running"}, terms)
}

func TestAnalyzer_Term(t *testing.T) {
	term, ok := Default.Term("Indexes")
	assert.True(t, ok)
	assert.Equal(t, "index", term)

	_, ok = Default.Term("the")
	assert.False(t, ok)
}

func TestNormalize_DoesNotStem(t *testing.T) {
	assert.Equal(t, "indexes", Normalize("INDEXES"))
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"relational": "relate",
		"searching":  "search",
		"classes":    "class",
		"go":         "go",
	}
	for in, want := range tests {
		assert.Equal(t, want, stem(in), in)
	}
}
