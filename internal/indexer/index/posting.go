package index

import "strings"

// Term is a (field, text) pair. Terms order by field first, then text, both
// compared byte-wise.
type Term struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

func (t Term) Compare(o Term) int {
	if c := strings.Compare(t.Field, o.Field); c != 0 {
		return c
	}
	return strings.Compare(t.Text, o.Text)
}

func (t Term) String() string {
	return t.Field + ":" + t.Text
}

// Posting records one document's occurrences of a term. DocNum is the dense
// ordinal the owning engine assigned to DocID.
type Posting struct {
	DocID     string `json:"id"`
	DocNum    uint32 `json:"n"`
	Frequency int    `json:"f"`
	Positions []int  `json:"p,omitempty"`
}

type PostingList []Posting

type TermEntry struct {
	Term     Term
	Postings PostingList
}

// Reader is a read-only view of one index snapshot.
type Reader interface {
	// MaxDoc is the number of documents in the snapshot.
	MaxDoc() int
	DocFreq(t Term) (int, error)
	// Terms enumerates the field's terms in order, starting at the first
	// term whose text is >= from.
	Terms(field, from string) (TermsEnum, error)
	Postings(t Term) (PostingList, error)
}
