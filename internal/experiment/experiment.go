// Package experiment models a two-variant CTR experiment and the Bayesian
// decision rules the deck walks through: posterior win probability and
// expected-loss stopping.
package experiment

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/ignite/betadeck/internal/bayes"
)

// Variant tracks observed counts for one arm of the experiment.
type Variant struct {
	Name        string `json:"name"`
	Impressions int    `json:"impressions"`
	Clicks      int    `json:"clicks"`
}

// CTR is the raw observed click-through rate. Zero when nothing was shown.
func (v Variant) CTR() float64 {
	if v.Impressions == 0 {
		return 0
	}
	return float64(v.Clicks) / float64(v.Impressions)
}

// Posterior folds the variant's counts into the prior.
func (v Variant) Posterior(prior bayes.Beta) (bayes.Beta, error) {
	if v.Clicks > v.Impressions {
		return bayes.Beta{}, fmt.Errorf("variant %q: clicks (%d) exceed impressions (%d)", v.Name, v.Clicks, v.Impressions)
	}
	return prior.Update(v.Clicks, v.Impressions-v.Clicks)
}

// Experiment is a control/treatment pair analyzed under a shared prior.
type Experiment struct {
	Control   Variant    `json:"control"`
	Treatment Variant    `json:"treatment"`
	Prior     bayes.Beta `json:"prior"`
}

// VariantSummary is the per-arm slice of a snapshot.
type VariantSummary struct {
	Variant      Variant    `json:"variant"`
	Posterior    bayes.Beta `json:"posterior"`
	PosteriorCTR float64    `json:"posterior_ctr"` // posterior mean
	CredibleLow  float64    `json:"credible_low"`  // 95% equal-tailed interval
	CredibleHigh float64    `json:"credible_high"`
	ExpectedLoss float64    `json:"expected_loss"` // CTR given up if this arm ships and the other was better
}

// Snapshot is the full Bayesian read of the experiment at a point in time.
type Snapshot struct {
	Control           VariantSummary `json:"control"`
	Treatment         VariantSummary `json:"treatment"`
	ProbTreatmentWins float64        `json:"prob_treatment_wins"`
	UpliftMean        float64        `json:"uplift_mean"`
	UpliftLow         float64        `json:"uplift_low"`
	UpliftHigh        float64        `json:"uplift_high"`
	Samples           int            `json:"samples"`
}

// Analyze computes posteriors for both arms and Monte Carlo comparison
// metrics. src seeds the sampler so repeated renders of the same deck agree.
func (e Experiment) Analyze(src rand.Source, opts bayes.CompareOptions) (*Snapshot, error) {
	postC, err := e.Control.Posterior(e.Prior)
	if err != nil {
		return nil, err
	}
	postT, err := e.Treatment.Posterior(e.Prior)
	if err != nil {
		return nil, err
	}

	cmp, err := bayes.Compare(postC, postT, src, opts)
	if err != nil {
		return nil, fmt.Errorf("comparing posteriors: %w", err)
	}

	cLo, cHi, err := postC.CredibleInterval(0.95)
	if err != nil {
		return nil, err
	}
	tLo, tHi, err := postT.CredibleInterval(0.95)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Control: VariantSummary{
			Variant:      e.Control,
			Posterior:    postC,
			PosteriorCTR: postC.Mean(),
			CredibleLow:  cLo,
			CredibleHigh: cHi,
			ExpectedLoss: cmp.LossControl,
		},
		Treatment: VariantSummary{
			Variant:      e.Treatment,
			Posterior:    postT,
			PosteriorCTR: postT.Mean(),
			CredibleLow:  tLo,
			CredibleHigh: tHi,
			ExpectedLoss: cmp.LossTreatment,
		},
		ProbTreatmentWins: cmp.ProbTreatmentWins,
		UpliftMean:        cmp.UpliftMean,
		UpliftLow:         cmp.UpliftLow,
		UpliftHigh:        cmp.UpliftHigh,
		Samples:           cmp.Samples,
	}, nil
}
