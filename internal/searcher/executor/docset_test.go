package executor

import (
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postingsOf(ids ...string) index.PostingList {
	pl := make(index.PostingList, len(ids))
	for i, id := range ids {
		// Unrelated per-source numbers; sets must only key on ids.
		pl[i] = index.Posting{DocID: id, DocNum: uint32(i), Frequency: 1}
	}
	return pl
}

func members(s *docSet) []string {
	var out []string
	s.each(func(docID string) { out = append(out, docID) })
	sort.Strings(out)
	return out
}

func TestDocSet_Combine(t *testing.T) {
	ords := newOrdinals()
	a := ords.set(ords.bitmap(postingsOf("d1", "d2", "d3")))
	b := ords.set(ords.bitmap(postingsOf("d3", "d4")))

	assert.Equal(t, []string{"d3"}, members(a.and(b)))
	assert.Equal(t, []string{"d1", "d2", "d3", "d4"}, members(a.or(b)))
	assert.Equal(t, []string{"d1", "d2"}, members(a.andNot(b)))
	assert.Equal(t, uint64(3), a.cardinality(), "operands are not modified")
}

func TestDocSet_SameIDFromTwoSources(t *testing.T) {
	ords := newOrdinals()
	older := ords.bitmap(index.PostingList{{DocID: "d1", DocNum: 0, Frequency: 1}})
	newer := ords.bitmap(index.PostingList{{DocID: "d1", DocNum: 7, Frequency: 2}})

	assert.True(t, older.Equals(newer))
	s := ords.set(older).or(ords.set(newer))
	assert.Equal(t, uint64(1), s.cardinality())
	assert.Equal(t, []string{"d1"}, members(s))
}

func TestDocSet_Scores(t *testing.T) {
	ords := newOrdinals()
	s := ords.set(ords.bitmap(postingsOf("d2", "d1")))
	assert.Equal(t, map[string]float64{"d1": 2.5, "d2": 2.5}, s.scores(2.5))

	empty := ords.set(ords.bitmap(nil))
	require.NotNil(t, empty.scores(1))
	assert.Empty(t, empty.scores(1))
}
