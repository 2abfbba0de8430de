package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/errors"
)

// Reader serves one segment file. The dictionary is held in memory so
// document frequencies and term enumeration never touch the disk; only
// Postings reads the file.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
}

var _ index.Reader = (*Reader)(nil)

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		f.Close()
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		f.Close()
		return nil, fmt.Errorf("unsupported segment format version %d", header.Version)
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DictOffset+header.DictSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	if sum := binary.LittleEndian.Uint32(footer[0:4]); sum != crc32.ChecksumIEEE(dictBytes) {
		f.Close()
		return nil, fmt.Errorf("dictionary checksum mismatch in %s", path)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		f.Close()
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
	}, nil
}

func (r *Reader) find(t index.Term) (int, bool) {
	i := sort.Search(len(r.dict), func(i int) bool {
		e := r.dict[i]
		if e.Field != t.Field {
			return e.Field > t.Field
		}
		return e.Term >= t.Text
	})
	return i, i < len(r.dict) && r.dict[i].Field == t.Field && r.dict[i].Term == t.Text
}

func (r *Reader) MaxDoc() int {
	return int(r.header.DocCount)
}

func (r *Reader) DocFreq(t index.Term) (int, error) {
	if i, ok := r.find(t); ok {
		return r.dict[i].DocFreq, nil
	}
	return 0, nil
}

func (r *Reader) Terms(field, from string) (index.TermsEnum, error) {
	start, _ := r.find(index.Term{Field: field, Text: from})
	end := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Field > field
	})
	if start > end {
		start = end
	}
	return index.NewRangeEnum(start, end, func(i int) (index.Term, int) {
		e := r.dict[i]
		return index.Term{Field: e.Field, Text: e.Term}, e.DocFreq
	}), nil
}

func (r *Reader) Postings(t index.Term) (index.PostingList, error) {
	i, ok := r.find(t)
	if !ok {
		return nil, nil
	}
	entry := r.dict[i]
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, apperrors.IndexRead("reading postings for "+t.String(), err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, apperrors.IndexRead("parsing postings for "+t.String(), err)
	}
	return postings, nil
}

func (r *Reader) TermCount() int {
	return len(r.dict)
}

func (r *Reader) MaxDocNum() uint32 {
	return r.header.MaxDocNum
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
