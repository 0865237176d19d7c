// Package simulate generates the synthetic click streams behind the deck's
// sequential-testing charts and measures how the stopping rules behave when
// run against known true CTRs.
package simulate

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// ClickStream emits Bernoulli click/no-click events at a fixed true CTR.
// Every stream owns its RNG so two arms never share draws.
type ClickStream struct {
	TrueCTR float64
	rng     *rand.Rand
}

// NewClickStream validates the rate and seeds the stream.
func NewClickStream(trueCTR float64, seed uint64) (*ClickStream, error) {
	if trueCTR < 0 || trueCTR > 1 {
		return nil, fmt.Errorf("true ctr must be in [0,1], got %g", trueCTR)
	}
	return &ClickStream{
		TrueCTR: trueCTR,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Batch serves n impressions and returns how many clicked.
func (s *ClickStream) Batch(n int) (clicks int) {
	for i := 0; i < n; i++ {
		if s.rng.Float64() < s.TrueCTR {
			clicks++
		}
	}
	return clicks
}
