package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/tokenizer"
)

// MemoryIndex is the mutable in-memory inverted index that buffers documents
// until the engine flushes them to a segment.
type MemoryIndex struct {
	mu      sync.RWMutex
	index   map[string]map[string]map[string]*Posting // field -> term -> docID
	docs    map[string]struct{}
	size    int64
	frozen  *Frozen
	maxDoc  uint32
	hasDocs bool
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]map[string]map[string]*Posting),
		docs:  make(map[string]struct{}),
	}
}

// AddDocument indexes the analyzed tokens of every field of one document.
func (m *MemoryIndex) AddDocument(docID string, docNum uint32, fields map[string][]tokenizer.Token) {
	type key struct{ field, term string }
	termData := make(map[key]*Posting)
	for field, tokens := range fields {
		for _, token := range tokens {
			k := key{field, token.Term}
			p, exists := termData[k]
			if !exists {
				p = &Posting{
					DocID:     docID,
					DocNum:    docNum,
					Positions: make([]int, 0, 4),
				}
				termData[k] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, posting := range termData {
		terms, ok := m.index[k.field]
		if !ok {
			terms = make(map[string]map[string]*Posting)
			m.index[k.field] = terms
		}
		if _, exists := terms[k.term]; !exists {
			terms[k.term] = make(map[string]*Posting)
		}
		terms[k.term][docID] = posting
		m.size += int64(len(k.field) + len(k.term) + len(docID) + len(posting.Positions)*8 + 64)
	}
	m.docs[docID] = struct{}{}
	if !m.hasDocs || docNum > m.maxDoc {
		m.maxDoc = docNum
		m.hasDocs = true
	}
	m.frozen = nil
}

func (m *MemoryIndex) Search(t Term) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[t.Field][t.Text]
	if !exists {
		return nil
	}
	return sortedPostings(docs)
}

// Freeze returns an immutable sorted view of the current contents. The view
// is memoised until the next write, so repeated snapshots between writes
// cost nothing.
func (m *MemoryIndex) Freeze() *Frozen {
	m.mu.RLock()
	if f := m.frozen; f != nil {
		m.mu.RUnlock()
		return f
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen != nil {
		return m.frozen
	}
	entries := make([]TermEntry, 0)
	for field, terms := range m.index {
		for term, docs := range terms {
			entries = append(entries, TermEntry{
				Term:     Term{Field: field, Text: term},
				Postings: sortedPostings(docs),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term.Compare(entries[j].Term) < 0
	})
	m.frozen = NewFrozen(entries, len(m.docs))
	return m.frozen
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// MaxDocNum reports the highest DocNum added since the last reset.
func (m *MemoryIndex) MaxDocNum() (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxDoc, m.hasDocs
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]map[string]*Posting)
	m.docs = make(map[string]struct{})
	m.size = 0
	m.maxDoc = 0
	m.hasDocs = false
	m.frozen = nil
}

func sortedPostings(docs map[string]*Posting) PostingList {
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocNum < result[j].DocNum
	})
	return result
}
