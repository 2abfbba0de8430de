package rewrite

import "fmt"

// Strategy names the shape of a rewrite result.
type Strategy string

const (
	StrategyEmpty          Strategy = "empty"
	StrategyConstantBool   Strategy = "constant_boolean"
	StrategyFilter         Strategy = "filter"
	StrategyScoringBoolean Strategy = "scoring_boolean"
	StrategyCustom         Strategy = "custom"
)

// CutoffReason records which threshold stopped term collection.
type CutoffReason string

const (
	CutoffNone      CutoffReason = ""
	CutoffTermCount CutoffReason = "term_count"
	CutoffDocCount  CutoffReason = "doc_count"
)

// Decision describes one rewrite.
type Decision struct {
	Pattern        string       `json:"pattern"`
	Strategy       Strategy     `json:"strategy"`
	Reason         CutoffReason `json:"reason,omitempty"`
	DocCountCutoff int          `json:"doc_count_cutoff"`
	TermCountLimit int          `json:"term_count_limit"`
	TermsCollected int          `json:"terms_collected"`
	DocVisitCount  int          `json:"doc_visit_count"`
	Cached         bool         `json:"cached,omitempty"`
}

func (d Decision) String() string {
	s := fmt.Sprintf("%s -> %s (terms=%d docs=%d", d.Pattern, d.Strategy, d.TermsCollected, d.DocVisitCount)
	if d.Reason != CutoffNone {
		s += " cutoff=" + string(d.Reason)
	}
	if d.Cached {
		s += " cached"
	}
	return s + ")"
}
