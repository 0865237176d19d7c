package experiment

import (
	"fmt"
)

// Verdict is the outcome of applying the stopping rules to a snapshot.
type Verdict string

const (
	// VerdictContinue means no rule fired: keep collecting data.
	VerdictContinue Verdict = "continue"
	// VerdictWinnerControl / VerdictWinnerTreatment declare a winner.
	VerdictWinnerControl   Verdict = "winner_control"
	VerdictWinnerTreatment Verdict = "winner_treatment"
	// VerdictEquivalent means both arms carry negligible expected loss:
	// ship either, the difference is not worth more traffic.
	VerdictEquivalent Verdict = "practical_equivalence"
)

// Rules are the deck's stopping rules. Zero values disable a rule, except
// MinImpressions which always guards against deciding on a handful of events.
type Rules struct {
	// WinProbability declares a winner when P(B>A) crosses the threshold
	// (or 1-threshold for control). Typical: 0.95.
	WinProbability float64 `json:"win_probability" yaml:"win_probability"`
	// MaxExpectedLoss stops when the leader's expected CTR loss drops under
	// this caring threshold. Typical: 0.0001 (one click per 10k impressions).
	MaxExpectedLoss float64 `json:"max_expected_loss" yaml:"max_expected_loss"`
	// MinImpressions per arm before any rule may fire.
	MinImpressions int `json:"min_impressions" yaml:"min_impressions"`
}

// Validate rejects rule combinations that could never fire or always fire.
func (r Rules) Validate() error {
	if r.WinProbability != 0 && (r.WinProbability <= 0.5 || r.WinProbability >= 1) {
		return fmt.Errorf("win_probability must be in (0.5,1), got %g", r.WinProbability)
	}
	if r.MaxExpectedLoss < 0 {
		return fmt.Errorf("max_expected_loss must be non-negative, got %g", r.MaxExpectedLoss)
	}
	if r.MinImpressions < 0 {
		return fmt.Errorf("min_impressions must be non-negative, got %d", r.MinImpressions)
	}
	if r.WinProbability == 0 && r.MaxExpectedLoss == 0 {
		return fmt.Errorf("at least one stopping rule must be enabled")
	}
	return nil
}

// Decision carries the verdict and a narrative reason, in the shape the deck
// prints on its stopping-rule slides.
type Decision struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
}

// Decide applies the rules to a snapshot. The minimum-samples guard runs
// first: no verdict other than continue is possible before both arms clear it.
func Decide(s *Snapshot, r Rules) Decision {
	nC := s.Control.Variant.Impressions
	nT := s.Treatment.Variant.Impressions
	if nC < r.MinImpressions || nT < r.MinImpressions {
		return Decision{
			Verdict: VerdictContinue,
			Reason:  fmt.Sprintf("below minimum of %d impressions per arm (control %d, treatment %d)", r.MinImpressions, nC, nT),
		}
	}

	if r.WinProbability > 0 {
		if s.ProbTreatmentWins >= r.WinProbability {
			return Decision{
				Verdict: VerdictWinnerTreatment,
				Reason:  fmt.Sprintf("P(treatment > control) = %.3f crossed the %.2f threshold", s.ProbTreatmentWins, r.WinProbability),
			}
		}
		if 1-s.ProbTreatmentWins >= r.WinProbability {
			return Decision{
				Verdict: VerdictWinnerControl,
				Reason:  fmt.Sprintf("P(control > treatment) = %.3f crossed the %.2f threshold", 1-s.ProbTreatmentWins, r.WinProbability),
			}
		}
	}

	if r.MaxExpectedLoss > 0 {
		lossC := s.Control.ExpectedLoss
		lossT := s.Treatment.ExpectedLoss
		if lossC <= r.MaxExpectedLoss && lossT <= r.MaxExpectedLoss {
			return Decision{
				Verdict: VerdictEquivalent,
				Reason:  fmt.Sprintf("expected loss of either arm (%.5f / %.5f) is under %.5f; arms are practically equivalent", lossC, lossT, r.MaxExpectedLoss),
			}
		}
		if lossT <= r.MaxExpectedLoss {
			return Decision{
				Verdict: VerdictWinnerTreatment,
				Reason:  fmt.Sprintf("expected loss of shipping treatment is %.5f, under the %.5f threshold", lossT, r.MaxExpectedLoss),
			}
		}
		if lossC <= r.MaxExpectedLoss {
			return Decision{
				Verdict: VerdictWinnerControl,
				Reason:  fmt.Sprintf("expected loss of shipping control is %.5f, under the %.5f threshold", lossC, r.MaxExpectedLoss),
			}
		}
	}

	return Decision{
		Verdict: VerdictContinue,
		Reason:  fmt.Sprintf("no rule fired at P(B>A)=%.3f, losses %.5f/%.5f", s.ProbTreatmentWins, s.Control.ExpectedLoss, s.Treatment.ExpectedLoss),
	}
}
