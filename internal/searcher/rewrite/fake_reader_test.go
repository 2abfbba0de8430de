package rewrite

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
)

var errDisk = errors.New("disk on fire")

// fakeReader serves a fixed dictionary for the "body" field.
type fakeReader struct {
	maxDoc   int
	terms    []string
	docFreq  map[string]int
	failOn   string
	failEnum bool
	version  string
	dfCalls  int
}

func newFakeReader(maxDoc int, dfs map[string]int) *fakeReader {
	r := &fakeReader{maxDoc: maxDoc, docFreq: dfs}
	for t := range dfs {
		r.terms = append(r.terms, t)
	}
	sort.Strings(r.terms)
	return r
}

// numberedTerms builds n terms t000, t001, ... sharing one frequency.
func numberedTerms(n, df int) map[string]int {
	out := make(map[string]int, n)
	for i := 0; i < n; i++ {
		out[fmt.Sprintf("t%03d", i)] = df
	}
	return out
}

func (r *fakeReader) MaxDoc() int { return r.maxDoc }

func (r *fakeReader) DocFreq(t index.Term) (int, error) {
	r.dfCalls++
	if t.Text == r.failOn {
		return 0, errDisk
	}
	return r.docFreq[t.Text], nil
}

func (r *fakeReader) Terms(field, from string) (index.TermsEnum, error) {
	if field != "body" {
		return index.EmptyEnum(), nil
	}
	start := sort.SearchStrings(r.terms, from)
	in := index.NewRangeEnum(start, len(r.terms), func(i int) (index.Term, int) {
		return index.Term{Field: "body", Text: r.terms[i]}, r.docFreq[r.terms[i]]
	})
	if r.failEnum {
		return &failingEnum{TermsEnum: in}, nil
	}
	return in, nil
}

func (r *fakeReader) Postings(index.Term) (index.PostingList, error) { return nil, nil }

type versionedReader struct {
	*fakeReader
}

func (r versionedReader) Version() string { return r.version }

// failingEnum yields nothing and reports an error.
type failingEnum struct {
	index.TermsEnum
}

func (e *failingEnum) Next() bool { return false }
func (e *failingEnum) Err() error { return errDisk }
