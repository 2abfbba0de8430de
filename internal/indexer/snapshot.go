package indexer

import (
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
)

// DocStats supplies the per-document statistics used for scoring.
type DocStats interface {
	GetDocLength(docID string) int
	GetAvgDocLength() float64
}

// Snapshot is a point-in-time index.Reader over an engine's segments and
// frozen memory index. It is immutable and safe for concurrent use.
type Snapshot struct {
	owner      uint64
	sources    []index.Reader
	generation uint64
	maxDoc     int
	stats      DocStats
}

var _ index.Reader = (*Snapshot)(nil)

// ownerSeq hands out process-unique ids to engines and standalone snapshots.
var ownerSeq atomic.Uint64

func newSnapshot(owner uint64, sources []index.Reader, generation uint64, stats DocStats) *Snapshot {
	maxDoc := 0
	for _, s := range sources {
		maxDoc += s.MaxDoc()
	}
	return &Snapshot{
		owner:      owner,
		sources:    sources,
		generation: generation,
		maxDoc:     maxDoc,
		stats:      stats,
	}
}

// NewSnapshot assembles a snapshot from arbitrary readers. stats may be nil.
func NewSnapshot(sources []index.Reader, generation uint64, stats DocStats) *Snapshot {
	return newSnapshot(ownerSeq.Add(1), sources, generation, stats)
}

func (s *Snapshot) Generation() uint64 { return s.generation }

// Version identifies the snapshot contents within this process: two
// snapshots with equal versions hold the same documents.
func (s *Snapshot) Version() string {
	return strconv.FormatUint(s.owner, 10) + "." + strconv.FormatUint(s.generation, 10)
}

// Sources exposes the underlying readers. Document numbers are only unique
// within a single source.
func (s *Snapshot) Sources() []index.Reader { return s.sources }

func (s *Snapshot) MaxDoc() int { return s.maxDoc }

func (s *Snapshot) DocFreq(t index.Term) (int, error) {
	total := 0
	for _, src := range s.sources {
		df, err := src.DocFreq(t)
		if err != nil {
			return 0, err
		}
		total += df
	}
	return total, nil
}

func (s *Snapshot) Terms(field, from string) (index.TermsEnum, error) {
	enums := make([]index.TermsEnum, 0, len(s.sources))
	for _, src := range s.sources {
		e, err := src.Terms(field, from)
		if err != nil {
			return nil, err
		}
		enums = append(enums, e)
	}
	return index.Merge(enums...), nil
}

func (s *Snapshot) Postings(t index.Term) (index.PostingList, error) {
	var all index.PostingList
	for _, src := range s.sources {
		postings, err := src.Postings(t)
		if err != nil {
			return nil, err
		}
		all = append(all, postings...)
	}
	return deduplicatePostings(all), nil
}

func (s *Snapshot) DocLength(docID string) int {
	if s.stats == nil {
		return 0
	}
	return s.stats.GetDocLength(docID)
}

func (s *Snapshot) AvgDocLength() float64 {
	if s.stats == nil {
		return 0
	}
	return s.stats.GetAvgDocLength()
}

// deduplicatePostings keeps one posting per document, preferring the one
// with the highest frequency, for documents indexed more than once.
func deduplicatePostings(postings index.PostingList) index.PostingList {
	if len(postings) <= 1 {
		return postings
	}
	seen := make(map[string]int)
	result := make(index.PostingList, 0, len(postings))
	for _, p := range postings {
		if idx, exists := seen[p.DocID]; exists {
			if p.Frequency > result[idx].Frequency {
				result[idx] = p
			}
		} else {
			seen[p.DocID] = len(result)
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}
