package executor

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
)

// ordinals numbers the document ids seen during one evaluation. Document
// numbers of the underlying readers are only unique within a source and a
// document indexed twice appears in two sources, so sets are keyed by
// evaluation-local ordinals instead.
type ordinals struct {
	byID map[string]uint32
	ids  []string
}

func newOrdinals() *ordinals {
	return &ordinals{byID: make(map[string]uint32)}
}

func (o *ordinals) of(docID string) uint32 {
	if n, ok := o.byID[docID]; ok {
		return n
	}
	n := uint32(len(o.ids))
	o.byID[docID] = n
	o.ids = append(o.ids, docID)
	return n
}

// bitmap turns one term's postings into a bitmap of ordinals.
func (o *ordinals) bitmap(postings index.PostingList) *roaring.Bitmap {
	nums := make([]uint32, len(postings))
	for i, p := range postings {
		nums[i] = o.of(p.DocID)
	}
	return roaring.BitmapOf(nums...)
}

func (o *ordinals) set(bits *roaring.Bitmap) *docSet {
	return &docSet{bits: bits, ords: o}
}

// docSet is an unscored set of documents. Sets combined with each other
// must share their ordinals.
type docSet struct {
	bits *roaring.Bitmap
	ords *ordinals
}

func (s *docSet) and(o *docSet) *docSet {
	return s.ords.set(roaring.And(s.bits, o.bits))
}

func (s *docSet) or(o *docSet) *docSet {
	return s.ords.set(roaring.Or(s.bits, o.bits))
}

func (s *docSet) andNot(o *docSet) *docSet {
	return s.ords.set(roaring.AndNot(s.bits, o.bits))
}

func (s *docSet) each(fn func(docID string)) {
	it := s.bits.Iterator()
	for it.HasNext() {
		fn(s.ords.ids[it.Next()])
	}
}

// scores gives every member the same score.
func (s *docSet) scores(score float64) map[string]float64 {
	out := make(map[string]float64, s.bits.GetCardinality())
	s.each(func(docID string) { out[docID] = score })
	return out
}

func (s *docSet) cardinality() uint64 { return s.bits.GetCardinality() }

// sources lists the readers a filter enumerates terms from.
func sources(r index.Reader) []index.Reader {
	if s, ok := r.(interface{ Sources() []index.Reader }); ok {
		return s.Sources()
	}
	return []index.Reader{r}
}
