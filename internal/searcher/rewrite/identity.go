package rewrite

import (
	"fmt"
	"math"
)

const hashPrime = 1279

// Equal reports whether o is configured with the same thresholds as s. The
// percentages are compared by bit pattern, so 0.0 and -0.0 differ and a NaN
// only equals a NaN with the same bits.
func (s *ConstantScoreAuto) Equal(o *ConstantScoreAuto) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.termCountCutoff == o.termCountCutoff &&
		math.Float64bits(s.docCountPercent) == math.Float64bits(o.docCountPercent)
}

// Hash is the low 32 bits of 1279*TermCountCutoff + bits(DocCountPercent),
// with the product taken in 32-bit arithmetic.
func (s *ConstantScoreAuto) Hash() int32 {
	product := uint32(int32(hashPrime) * int32(s.termCountCutoff))
	return int32(product + uint32(math.Float64bits(s.docCountPercent)))
}

// Key is a string form of the identity: equal strategies have equal keys.
func (s *ConstantScoreAuto) Key() string {
	return fmt.Sprintf("constant_score_auto:%d:%016x", s.termCountCutoff, math.Float64bits(s.docCountPercent))
}
