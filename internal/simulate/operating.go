package simulate

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/ignite/betadeck/internal/experiment"
)

// StudyConfig repeats a sequential experiment to measure how often the
// stopping rules reach each verdict. Run it with equal true CTRs for the
// false-positive slide and with a real uplift for the power slide.
type StudyConfig struct {
	Base       SequentialConfig `json:"base" yaml:"base"`
	Replicates int              `json:"replicates" yaml:"replicates"`
	Workers    int              `json:"workers" yaml:"workers"` // 0 = GOMAXPROCS
}

// StudyResult aggregates verdicts over all replicates.
type StudyResult struct {
	Replicates        int     `json:"replicates"`
	WinnerControl     int     `json:"winner_control"`
	WinnerTreatment   int     `json:"winner_treatment"`
	Equivalent        int     `json:"equivalent"`
	Inconclusive      int     `json:"inconclusive"` // budget exhausted, still continue
	AvgImpressionsArm float64 `json:"avg_impressions_per_arm"`

	// DecisionRate is the share of replicates that stopped with any verdict.
	DecisionRate float64 `json:"decision_rate"`
	// TreatmentWinRate is the share declaring treatment the winner. Under
	// A/A this is (half of) the false-positive rate; under a real uplift it
	// is the power of the procedure.
	TreatmentWinRate float64 `json:"treatment_win_rate"`
}

// RunStudy executes the replicates on a bounded worker pool. Each replicate
// offsets the seed so runs are independent but the study as a whole is
// reproducible.
func RunStudy(cfg StudyConfig) (*StudyResult, error) {
	if cfg.Replicates <= 0 {
		return nil, fmt.Errorf("replicates must be positive, got %d", cfg.Replicates)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	type outcome struct {
		verdict   experiment.Verdict
		stoppedAt int
		err       error
	}

	jobs := make(chan int)
	outcomes := make(chan outcome, cfg.Replicates)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rep := range jobs {
				run := cfg.Base
				// Each replicate consumes three seeds (two arms + sampler).
				run.Seed = cfg.Base.Seed + uint64(rep)*3
				trace, err := RunSequential(run)
				if err != nil {
					outcomes <- outcome{err: err}
					continue
				}
				outcomes <- outcome{verdict: trace.Decision.Verdict, stoppedAt: trace.StoppedAt}
			}
		}()
	}

	go func() {
		for rep := 0; rep < cfg.Replicates; rep++ {
			jobs <- rep
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	result := &StudyResult{Replicates: cfg.Replicates}
	totalImpressions := 0
	done := 0
	for o := range outcomes {
		if o.err != nil {
			return nil, fmt.Errorf("replicate failed: %w", o.err)
		}
		totalImpressions += o.stoppedAt
		switch o.verdict {
		case experiment.VerdictWinnerControl:
			result.WinnerControl++
		case experiment.VerdictWinnerTreatment:
			result.WinnerTreatment++
		case experiment.VerdictEquivalent:
			result.Equivalent++
		default:
			result.Inconclusive++
		}
		done++
		if done%500 == 0 {
			log.Printf("[study] %d/%d replicates complete", done, cfg.Replicates)
		}
	}

	n := float64(cfg.Replicates)
	result.AvgImpressionsArm = float64(totalImpressions) / n
	result.DecisionRate = float64(result.WinnerControl+result.WinnerTreatment+result.Equivalent) / n
	result.TreatmentWinRate = float64(result.WinnerTreatment) / n
	return result, nil
}
