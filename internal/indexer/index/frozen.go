package index

import "sort"

// Frozen is an immutable, sorted set of term entries. It serves both as the
// flush input for a segment and as the memory part of a search snapshot.
type Frozen struct {
	entries  []TermEntry
	docCount int
}

// NewFrozen wraps entries, which must already be sorted by Term.
func NewFrozen(entries []TermEntry, docCount int) *Frozen {
	return &Frozen{entries: entries, docCount: docCount}
}

func (f *Frozen) Entries() []TermEntry { return f.entries }

func (f *Frozen) Len() int { return len(f.entries) }

func (f *Frozen) MaxDoc() int { return f.docCount }

func (f *Frozen) find(t Term) (int, bool) {
	i := sort.Search(len(f.entries), func(i int) bool {
		return f.entries[i].Term.Compare(t) >= 0
	})
	return i, i < len(f.entries) && f.entries[i].Term == t
}

func (f *Frozen) DocFreq(t Term) (int, error) {
	if i, ok := f.find(t); ok {
		return len(f.entries[i].Postings), nil
	}
	return 0, nil
}

func (f *Frozen) Postings(t Term) (PostingList, error) {
	if i, ok := f.find(t); ok {
		return f.entries[i].Postings, nil
	}
	return nil, nil
}

func (f *Frozen) Terms(field, from string) (TermsEnum, error) {
	start, _ := f.find(Term{Field: field, Text: from})
	end := sort.Search(len(f.entries), func(i int) bool {
		return f.entries[i].Term.Field > field
	})
	if start > end {
		start = end
	}
	return NewRangeEnum(start, end, func(i int) (Term, int) {
		e := f.entries[i]
		return e.Term, len(e.Postings)
	}), nil
}
