// Package bayes implements the Beta-Binomial arithmetic behind the deck's
// narrative: conjugate posterior updates for click-through rates and Monte
// Carlo comparison of two posteriors.
package bayes

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Beta holds the shape parameters of a Beta distribution over a rate in [0,1].
// It doubles as prior and posterior: a posterior is just a prior with the
// observed counts folded in.
type Beta struct {
	Alpha float64 `json:"alpha"` // shape1: prior successes + 1 (for the uniform prior)
	Beta  float64 `json:"beta"`  // shape2: prior failures + 1
}

// NewBeta validates and returns Beta parameters.
func NewBeta(alpha, beta float64) (Beta, error) {
	if alpha <= 0 || beta <= 0 {
		return Beta{}, fmt.Errorf("beta shapes must be positive, got alpha=%g beta=%g", alpha, beta)
	}
	return Beta{Alpha: alpha, Beta: beta}, nil
}

// Uniform is the flat Beta(1,1) prior: every CTR equally believable.
func Uniform() Beta {
	return Beta{Alpha: 1, Beta: 1}
}

// Jeffreys is the Beta(0.5,0.5) reference prior.
func Jeffreys() Beta {
	return Beta{Alpha: 0.5, Beta: 0.5}
}

// FromCTR builds an informative prior from a CTR guess and a pseudo-observation
// weight: Beta(ctr*weight, (1-ctr)*weight). A weight of 100 means the prior
// carries as much evidence as 100 impressions.
func FromCTR(ctr, weight float64) (Beta, error) {
	if ctr <= 0 || ctr >= 1 {
		return Beta{}, fmt.Errorf("prior ctr must be in (0,1), got %g", ctr)
	}
	if weight <= 0 {
		return Beta{}, fmt.Errorf("prior weight must be positive, got %g", weight)
	}
	return Beta{Alpha: ctr * weight, Beta: (1 - ctr) * weight}, nil
}

// Update folds observed counts into the distribution. This is the whole of
// Beta-Binomial conjugacy:
//
//	posterior_shape1 = prior_shape1 + clicked
//	posterior_shape2 = prior_shape2 + not_clicked
//
// Updating with zero counts returns the prior unchanged.
func (b Beta) Update(clicked, notClicked int) (Beta, error) {
	if clicked < 0 || notClicked < 0 {
		return Beta{}, fmt.Errorf("counts must be non-negative, got clicked=%d not_clicked=%d", clicked, notClicked)
	}
	return Beta{
		Alpha: b.Alpha + float64(clicked),
		Beta:  b.Beta + float64(notClicked),
	}, nil
}

// Dist returns the gonum distribution for sampling and density evaluation.
// Src may be nil, in which case gonum falls back to the global source; every
// chart render passes an explicit seeded source instead.
func (b Beta) Dist(src rand.Source) distuv.Beta {
	return distuv.Beta{Alpha: b.Alpha, Beta: b.Beta, Src: src}
}

// Mean is alpha/(alpha+beta).
func (b Beta) Mean() float64 {
	return b.Alpha / (b.Alpha + b.Beta)
}

// Mode is (alpha-1)/(alpha+beta-2) when both shapes exceed 1; for flatter
// distributions there is no interior mode and the mean is returned instead.
func (b Beta) Mode() float64 {
	if b.Alpha > 1 && b.Beta > 1 {
		return (b.Alpha - 1) / (b.Alpha + b.Beta - 2)
	}
	return b.Mean()
}

// Variance of the distribution.
func (b Beta) Variance() float64 {
	s := b.Alpha + b.Beta
	return b.Alpha * b.Beta / (s * s * (s + 1))
}

// PDF evaluates the density at x.
func (b Beta) PDF(x float64) float64 {
	return b.Dist(nil).Prob(x)
}

// Quantile inverts the CDF.
func (b Beta) Quantile(p float64) float64 {
	return b.Dist(nil).Quantile(p)
}

// CredibleInterval returns the equal-tailed interval at the given level,
// e.g. level 0.95 returns the 2.5% and 97.5% quantiles.
func (b Beta) CredibleInterval(level float64) (lo, hi float64, err error) {
	if level <= 0 || level >= 1 {
		return 0, 0, fmt.Errorf("credible level must be in (0,1), got %g", level)
	}
	tail := (1 - level) / 2
	d := b.Dist(nil)
	return d.Quantile(tail), d.Quantile(1 - tail), nil
}

// EvidenceWeight is the number of pseudo-observations the distribution
// encodes. Used by the deck to annotate how much a prior "counts for".
func (b Beta) EvidenceWeight() float64 {
	return b.Alpha + b.Beta
}
