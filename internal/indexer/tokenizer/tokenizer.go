// Package tokenizer turns raw document text into index terms. An Analyzer
// lower-cases input, splits on non-alphanumeric boundaries, drops short
// words and stop-words, and optionally applies a suffix-stripping stemmer.
package tokenizer

import (
	"strings"
	"unicode"
)

var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on", "or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they", "have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each", "do", "not", "no", "so", "can",
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Analyzer is immutable once built and safe for concurrent use.
type Analyzer struct {
	minLength int
	stopWords map[string]struct{}
	stem      bool
}

type Option func(*Analyzer)

// WithStopWords replaces the default stop-word list.
func WithStopWords(words ...string) Option {
	return func(a *Analyzer) {
		a.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			a.stopWords[strings.ToLower(w)] = struct{}{}
		}
	}
}

func WithMinLength(n int) Option {
	return func(a *Analyzer) { a.minLength = n }
}

func WithoutStemming() Option {
	return func(a *Analyzer) { a.stem = false }
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{minLength: 2, stem: true}
	WithStopWords(defaultStopWords...)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Default is the analyzer used for every indexed field.
var Default = NewAnalyzer()

// Tokenize runs text through the Default analyzer.
func Tokenize(text string) []Token {
	return Default.Tokenize(text)
}

// Tokenize breaks text into a slice of lowercased Tokens with short words and
// stop-words removed. Positions count only the kept tokens.
func (a *Analyzer) Tokenize(text string) []Token {
	words := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	tokens := make([]Token, 0, len(words)/2)
	pos := 0
	for _, word := range words {
		if len(word) < a.minLength {
			continue
		}
		if _, isStop := a.stopWords[word]; isStop {
			continue
		}
		if a.stem {
			word = stem(word)
		}
		if word == "" {
			continue
		}
		tokens = append(tokens, Token{Term: word, Position: pos})
		pos++
	}
	return tokens
}

// Term analyzes a single query word and reports the indexed form, or false
// when the analyzer would drop it.
func (a *Analyzer) Term(word string) (string, bool) {
	tokens := a.Tokenize(word)
	if len(tokens) == 0 {
		return "", false
	}
	return tokens[0].Term, true
}

// Normalize prepares pattern text (prefixes, wildcards, range bounds) for
// matching against indexed terms. It only lower-cases: stemming a partial
// word would change which terms it matches.
func Normalize(text string) string {
	return strings.ToLower(text)
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// stem strips the first matching suffix whose remainder stays long enough.
func stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
