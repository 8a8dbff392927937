// Package scoring turns a set of triggered rules into a normalized risk
// score. The mapping is deterministic and stateless: the score of a stored
// assessment can always be re-derived from its triggered rules and the
// divisor version it was scored under.
package scoring

import (
	"math"

	"github.com/mbd888/sentinel/internal/rules"
)

// DefaultDivisor is the weight sum that saturates the score at 1.0.
const DefaultDivisor = 25.0

// Version identifies the normalization scheme persisted with assessments.
const Version = "saturating-sum/1"

// Scorer normalizes triggered-rule weights into [0, 1].
type Scorer struct {
	divisor float64
}

// NewScorer creates a scorer with the given saturation divisor. Divisors
// must be positive; use DefaultDivisor unless recalibrating.
func NewScorer(divisor float64) *Scorer {
	if divisor <= 0 {
		divisor = DefaultDivisor
	}
	return &Scorer{divisor: divisor}
}

// Divisor returns the configured saturation divisor.
func (s *Scorer) Divisor() float64 { return s.divisor }

// Score sums the triggered weights and saturates at 1.0. Order of the
// triggered rules never affects the result.
func (s *Scorer) Score(triggered []rules.TriggeredRule) float64 {
	var sum float64
	for _, tr := range triggered {
		sum += tr.Weight
	}
	return math.Min(sum/s.divisor, 1.0)
}
