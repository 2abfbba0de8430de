package index

// TermsEnum is a lazy, ordered iterator over the terms of one field.
//
//	for e.Next() {
//		t, df := e.Term(), e.DocFreq()
//	}
//	if err := e.Err(); err != nil { ... }
type TermsEnum interface {
	Next() bool
	Term() Term
	DocFreq() int
	Err() error
}

type emptyEnum struct{}

func (emptyEnum) Next() bool   { return false }
func (emptyEnum) Term() Term   { return Term{} }
func (emptyEnum) DocFreq() int { return 0 }
func (emptyEnum) Err() error   { return nil }

// EmptyEnum returns an enum with no terms.
func EmptyEnum() TermsEnum { return emptyEnum{} }

type rangeEnum struct {
	pos, end int
	at       func(i int) (Term, int)
	term     Term
	docFreq  int
}

// NewRangeEnum walks positions [start, end) of a sorted collection, reading
// each position through at.
func NewRangeEnum(start, end int, at func(i int) (Term, int)) TermsEnum {
	return &rangeEnum{pos: start - 1, end: end, at: at}
}

func (e *rangeEnum) Next() bool {
	e.pos++
	if e.pos >= e.end {
		e.pos = e.end
		return false
	}
	e.term, e.docFreq = e.at(e.pos)
	return true
}

func (e *rangeEnum) Term() Term   { return e.term }
func (e *rangeEnum) DocFreq() int { return e.docFreq }
func (e *rangeEnum) Err() error   { return nil }

// AcceptStatus is returned by a Filter predicate.
type AcceptStatus int

const (
	Accept AcceptStatus = iota
	Skip
	// End stops the enumeration: no later term can match.
	End
)

type filteredEnum struct {
	in     TermsEnum
	accept func(Term) AcceptStatus
	done   bool
}

// Filter yields the terms of in for which accept returns Accept.
func Filter(in TermsEnum, accept func(Term) AcceptStatus) TermsEnum {
	return &filteredEnum{in: in, accept: accept}
}

func (e *filteredEnum) Next() bool {
	if e.done {
		return false
	}
	for e.in.Next() {
		switch e.accept(e.in.Term()) {
		case Accept:
			return true
		case End:
			e.done = true
			return false
		}
	}
	e.done = true
	return false
}

func (e *filteredEnum) Term() Term   { return e.in.Term() }
func (e *filteredEnum) DocFreq() int { return e.in.DocFreq() }
func (e *filteredEnum) Err() error   { return e.in.Err() }

type multiEnum struct {
	subs    []TermsEnum
	live    []bool
	pending []int
	started bool
	term    Term
	docFreq int
	err     error
}

// Merge combines several enums over the same field into one ordered enum.
// Equal terms are emitted once with their document frequencies summed.
func Merge(subs ...TermsEnum) TermsEnum {
	switch len(subs) {
	case 0:
		return EmptyEnum()
	case 1:
		return subs[0]
	}
	return &multiEnum{subs: subs, live: make([]bool, len(subs))}
}

func (m *multiEnum) Next() bool {
	if m.err != nil {
		return false
	}
	if !m.started {
		m.started = true
		for i := range m.subs {
			m.step(i)
		}
	} else {
		for _, i := range m.pending {
			m.step(i)
		}
	}
	m.pending = m.pending[:0]
	if m.err != nil {
		return false
	}

	found := false
	for i, sub := range m.subs {
		if !m.live[i] {
			continue
		}
		if t := sub.Term(); !found || t.Compare(m.term) < 0 {
			m.term = t
			found = true
		}
	}
	if !found {
		return false
	}
	m.docFreq = 0
	for i, sub := range m.subs {
		if m.live[i] && sub.Term() == m.term {
			m.docFreq += sub.DocFreq()
			m.pending = append(m.pending, i)
		}
	}
	return true
}

func (m *multiEnum) step(i int) {
	if m.subs[i].Next() {
		m.live[i] = true
		return
	}
	m.live[i] = false
	if err := m.subs[i].Err(); err != nil && m.err == nil {
		m.err = err
	}
}

func (m *multiEnum) Term() Term   { return m.term }
func (m *multiEnum) DocFreq() int { return m.docFreq }
func (m *multiEnum) Err() error   { return m.err }
