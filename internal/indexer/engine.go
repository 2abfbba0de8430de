package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/config"
)

// Engine owns one shard: a memory index that buffers writes and the
// immutable segments it has flushed or loaded.
type Engine struct {
	// mu serialises writes, flushes and snapshot acquisition so that a
	// snapshot never sees a document in both memory and a segment.
	mu         sync.Mutex
	id         uint64
	memIndex   *index.MemoryIndex
	writer     *segment.Writer
	readers    []*segment.Reader
	loaded     map[string]struct{}
	nextDocNum uint32
	generation atomic.Uint64

	cfg      config.IndexerConfig
	analyzer *tokenizer.Analyzer
	logger   *slog.Logger

	docLengthsMu sync.RWMutex
	docLengths   map[string]int
	totalDocs    int64
	totalTokens  int64
}

func NewEngine(cfg config.IndexerConfig) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	e := &Engine{
		id:         ownerSeq.Add(1),
		memIndex:   index.NewMemoryIndex(),
		writer:     segment.NewWriter(cfg.DataDir),
		loaded:     make(map[string]struct{}),
		cfg:        cfg,
		analyzer:   tokenizer.Default,
		logger:     slog.Default().With("component", "indexer", "data_dir", cfg.DataDir),
		docLengths: make(map[string]int),
	}
	if _, err := e.loadSegments(); err != nil {
		return nil, fmt.Errorf("loading existing segments: %w", err)
	}
	return e, nil
}

// IndexDocument analyzes every field and adds the document to the memory
// index, flushing to a new segment once the memory threshold is reached.
func (e *Engine) IndexDocument(docID string, fields map[string]string) error {
	if docID == "" {
		return fmt.Errorf("document id is required")
	}
	analyzed := make(map[string][]tokenizer.Token, len(fields))
	tokenCount := 0
	for field, text := range fields {
		tokens := e.analyzer.Tokenize(text)
		analyzed[field] = tokens
		tokenCount += len(tokens)
	}

	e.mu.Lock()
	docNum := e.nextDocNum
	e.nextDocNum++
	e.memIndex.AddDocument(docID, docNum, analyzed)
	e.generation.Add(1)
	memSize := e.memIndex.Size()
	e.mu.Unlock()

	e.docLengthsMu.Lock()
	if _, seen := e.docLengths[docID]; !seen {
		e.totalDocs++
	}
	e.docLengths[docID] = tokenCount
	e.totalTokens += int64(tokenCount)
	e.docLengthsMu.Unlock()

	e.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"doc_num", docNum,
		"token_count", tokenCount,
		"mem_size", memSize,
	)
	if e.cfg.SegmentMaxSize > 0 && memSize >= e.cfg.SegmentMaxSize {
		e.logger.Info("memory index reached max size, flushing to disk",
			"size", memSize,
			"threshold", e.cfg.SegmentMaxSize,
		)
		if err := e.Flush(); err != nil {
			return fmt.Errorf("flushing memory index: %w", err)
		}
	}
	return nil
}

// Flush writes the memory index to a new segment and swaps it in.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	frozen := e.memIndex.Freeze()
	if frozen.Len() == 0 {
		return nil
	}
	maxDocNum, _ := e.memIndex.MaxDocNum()
	segmentName, err := e.writer.Write(frozen, maxDocNum)
	if err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}

	segPath := filepath.Join(e.cfg.DataDir, segmentName)
	reader, err := segment.OpenReader(segPath)
	if err != nil {
		return fmt.Errorf("opening new segment for reading: %w", err)
	}
	e.readers = append(e.readers, reader)
	e.loaded[segmentName] = struct{}{}
	e.memIndex.Reset()
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", reader.TermCount(),
		"docs", reader.MaxDoc(),
		"active_segments", len(e.readers),
	)
	return nil
}

// Snapshot pins the current memory contents and segments. The returned
// reader does not change as the engine keeps indexing.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	sources := make([]index.Reader, 0, len(e.readers)+1)
	for _, r := range e.readers {
		sources = append(sources, r)
	}
	if frozen := e.memIndex.Freeze(); frozen.Len() > 0 {
		sources = append(sources, frozen)
	}
	return newSnapshot(e.id, sources, e.generation.Load(), e)
}

// Generation changes whenever the searchable contents change.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// ReloadSegments picks up segments written into the data directory by
// another process and returns how many were added.
func (e *Engine) ReloadSegments() int {
	n, err := e.loadSegments()
	if err != nil {
		e.logger.Error("segment reload failed", "error", err)
	}
	return n
}

func (e *Engine) GetDocLength(docID string) int {
	e.docLengthsMu.RLock()
	defer e.docLengthsMu.RUnlock()
	return e.docLengths[docID]
}

func (e *Engine) GetAvgDocLength() float64 {
	e.docLengthsMu.RLock()
	defer e.docLengthsMu.RUnlock()
	if e.totalDocs == 0 {
		return 0
	}
	return float64(e.totalTokens) / float64(e.totalDocs)
}

func (e *Engine) StartFlushLoop(ctx context.Context) {
	interval := e.cfg.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("flush loop stopping, performing final flush")
				if err := e.Flush(); err != nil {
					e.logger.Error("final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if e.memIndex.DocCount() > 0 {
					if err := e.Flush(); err != nil {
						e.logger.Error("periodic flush failed", "error", err)
					}
				}
			}
		}
	}()
}

func (e *Engine) Close() error {
	if err := e.Flush(); err != nil {
		e.logger.Error("final flush on close failed", "error", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil {
			e.logger.Error("closing segment reader", "error", err)
		}
	}
	e.readers = nil
	return nil
}

func (e *Engine) loadSegments() (int, error) {
	entries, err := os.ReadDir(e.cfg.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading data directory: %w", err)
	}
	segFiles := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), segment.Extension) {
			segFiles = append(segFiles, entry.Name())
		}
	}
	sort.Strings(segFiles)

	e.mu.Lock()
	defer e.mu.Unlock()
	added := 0
	for _, name := range segFiles {
		if _, ok := e.loaded[name]; ok {
			continue
		}
		path := filepath.Join(e.cfg.DataDir, name)
		reader, err := segment.OpenReader(path)
		if err != nil {
			e.logger.Error("failed to open segment, skipping",
				"segment", name,
				"error", err,
			)
			continue
		}
		e.readers = append(e.readers, reader)
		e.loaded[name] = struct{}{}
		if next := reader.MaxDocNum() + 1; next > e.nextDocNum {
			e.nextDocNum = next
		}
		added++
		e.logger.Info("loaded segment",
			"segment", name,
			"terms", reader.TermCount(),
			"docs", reader.MaxDoc(),
		)
	}
	if added > 0 {
		e.generation.Add(1)
	}
	e.logger.Info("segment scan complete", "segments_loaded", added, "active_segments", len(e.readers))
	return added, nil
}
