package rewrite

import "github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/index"

// cutOffCollector buffers terms until either the term count limit or the
// document visit cutoff is reached. The term that reaches a limit is kept in
// pending and its frequency counted.
type cutOffCollector struct {
	reader         index.Reader
	docCountCutoff int
	termCountLimit int

	pending       []index.Term
	docVisitCount int
	hasCutOff     bool
	reason        CutoffReason
}

func newCutOffCollector(r index.Reader, docCountCutoff, termCountLimit int) *cutOffCollector {
	return &cutOffCollector{
		reader:         r,
		docCountCutoff: docCountCutoff,
		termCountLimit: termCountLimit,
	}
}

func (c *cutOffCollector) Collect(t index.Term) (bool, error) {
	c.pending = append(c.pending, t)
	df, err := c.reader.DocFreq(t)
	if err != nil {
		return false, err
	}
	c.docVisitCount += df

	switch {
	case len(c.pending) >= c.termCountLimit:
		c.reason = CutoffTermCount
	case c.docVisitCount >= c.docCountCutoff:
		c.reason = CutoffDocCount
	default:
		return true, nil
	}
	c.hasCutOff = true
	return false, nil
}
