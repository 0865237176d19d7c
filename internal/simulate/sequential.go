package simulate

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/ignite/betadeck/internal/bayes"
	"github.com/ignite/betadeck/internal/experiment"
)

// SequentialConfig describes one simulated sequential experiment: two arms
// with known true CTRs, evaluated against the stopping rules after every
// batch of impressions.
type SequentialConfig struct {
	ControlCTR   float64          `json:"control_ctr" yaml:"control_ctr"`
	TreatmentCTR float64          `json:"treatment_ctr" yaml:"treatment_ctr"`
	BatchSize    int              `json:"batch_size" yaml:"batch_size"` // impressions per arm per checkpoint
	MaxPerArm    int              `json:"max_per_arm" yaml:"max_per_arm"`
	Prior        bayes.Beta       `json:"prior" yaml:"-"`
	Rules        experiment.Rules `json:"rules" yaml:"rules"`
	Samples      int              `json:"samples" yaml:"samples"` // Monte Carlo draws per checkpoint
	Seed         uint64           `json:"seed" yaml:"seed"`
}

func (c SequentialConfig) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.MaxPerArm < c.BatchSize {
		return fmt.Errorf("max_per_arm (%d) must cover at least one batch (%d)", c.MaxPerArm, c.BatchSize)
	}
	return c.Rules.Validate()
}

// Checkpoint records the experiment's Bayesian read after one batch. The
// trace of checkpoints is what the sequential-testing chart plots.
type Checkpoint struct {
	PerArm            int     `json:"per_arm"` // cumulative impressions per arm
	ControlCTR        float64 `json:"control_ctr"`
	TreatmentCTR      float64 `json:"treatment_ctr"`
	ProbTreatmentWins float64 `json:"prob_treatment_wins"`
	LossControl       float64 `json:"loss_control"`
	LossTreatment     float64 `json:"loss_treatment"`
}

// Trace is the full record of one sequential run.
type Trace struct {
	RunID       string                `json:"run_id"`
	Config      SequentialConfig      `json:"config"`
	Checkpoints []Checkpoint          `json:"checkpoints"`
	Decision    experiment.Decision   `json:"decision"`
	StoppedAt   int                   `json:"stopped_at"` // impressions per arm when a rule fired; MaxPerArm if none did
	Final       *experiment.Snapshot  `json:"final"`
}

// RunSequential feeds batches of simulated traffic through the posterior
// update and applies the stopping rules at each checkpoint, until a rule
// fires or the traffic budget is exhausted.
func RunSequential(cfg SequentialConfig) (*Trace, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("sequential config: %w", err)
	}

	// Derive distinct deterministic seeds for the two arms and the sampler.
	control, err := NewClickStream(cfg.ControlCTR, cfg.Seed)
	if err != nil {
		return nil, err
	}
	treatment, err := NewClickStream(cfg.TreatmentCTR, cfg.Seed+1)
	if err != nil {
		return nil, err
	}
	src := rand.NewSource(cfg.Seed + 2)

	trace := &Trace{
		RunID:  uuid.NewString(),
		Config: cfg,
	}

	exp := experiment.Experiment{
		Control:   experiment.Variant{Name: "control"},
		Treatment: experiment.Variant{Name: "treatment"},
		Prior:     cfg.Prior,
	}

	for perArm := cfg.BatchSize; perArm <= cfg.MaxPerArm; perArm += cfg.BatchSize {
		exp.Control.Impressions = perArm
		exp.Control.Clicks += control.Batch(cfg.BatchSize)
		exp.Treatment.Impressions = perArm
		exp.Treatment.Clicks += treatment.Batch(cfg.BatchSize)

		snap, err := exp.Analyze(src, bayes.CompareOptions{Samples: cfg.Samples})
		if err != nil {
			return nil, fmt.Errorf("checkpoint at %d per arm: %w", perArm, err)
		}

		trace.Checkpoints = append(trace.Checkpoints, Checkpoint{
			PerArm:            perArm,
			ControlCTR:        exp.Control.CTR(),
			TreatmentCTR:      exp.Treatment.CTR(),
			ProbTreatmentWins: snap.ProbTreatmentWins,
			LossControl:       snap.Control.ExpectedLoss,
			LossTreatment:     snap.Treatment.ExpectedLoss,
		})

		decision := experiment.Decide(snap, cfg.Rules)
		trace.Decision = decision
		trace.StoppedAt = perArm
		trace.Final = snap
		if decision.Verdict != experiment.VerdictContinue {
			return trace, nil
		}
	}

	return trace, nil
}
