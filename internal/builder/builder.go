// Package builder runs a full deck build: simulate, render figures, render
// slides, write the output directory.
package builder

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/exp/rand"

	"github.com/ignite/betadeck/internal/bayes"
	"github.com/ignite/betadeck/internal/charts"
	"github.com/ignite/betadeck/internal/config"
	"github.com/ignite/betadeck/internal/deck"
	"github.com/ignite/betadeck/internal/experiment"
	"github.com/ignite/betadeck/internal/simulate"
)

// Figure names a deck source may reference. Each maps to one render job.
const (
	FigPriors          = "priors"
	FigPosteriorUpdate = "posterior_updates"
	FigPosteriorAnim   = "posterior_updates_anim"
	FigUplift          = "uplift"
	FigSequential      = "sequential_trace"
	FigOperating       = "operating_characteristics"
)

// Build renders every figure the deck references and assembles the HTML
// twice: index.html links into the figures directory it is served beside,
// and standalone.html embeds every figure for a single portable file. It
// returns the path of the written index.html.
func Build(cfg *config.Config) (string, error) {
	start := time.Now()

	d, err := deck.Load(cfg.Build.DeckPath)
	if err != nil {
		return "", err
	}
	log.Printf("[build] loaded %q: %d slides, %d figures", d.Title, len(d.Slides), len(d.FigureNames()))

	figDir := filepath.Join(cfg.Build.OutputDir, "figures")
	renderer, err := charts.NewRenderer(figDir, cfg.Charts.WidthInches, cfg.Charts.HeightInches)
	if err != nil {
		return "", err
	}

	b := &builder{cfg: cfg, renderer: renderer, figures: map[string]string{}}
	for _, name := range d.FigureNames() {
		if err := b.renderFigure(name); err != nil {
			return "", fmt.Errorf("figure %q: %w", name, err)
		}
	}

	engine := deck.NewTemplateEngine()

	hrefs := make(map[string]string, len(b.figures))
	for name, path := range b.figures {
		hrefs[name] = "figures/" + filepath.Base(path)
	}
	linked, err := deck.RenderHTML(d, engine, hrefs, deck.FiguresLinked)
	if err != nil {
		return "", err
	}
	outPath := filepath.Join(cfg.Build.OutputDir, "index.html")
	if err := os.WriteFile(outPath, []byte(linked), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}

	embedded, err := deck.RenderHTML(d, engine, b.figures, deck.FiguresEmbedded)
	if err != nil {
		return "", err
	}
	standalonePath := filepath.Join(cfg.Build.OutputDir, "standalone.html")
	if err := os.WriteFile(standalonePath, []byte(embedded), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", standalonePath, err)
	}

	log.Printf("[build] wrote %s and %s in %s", outPath, standalonePath, time.Since(start).Round(time.Millisecond))
	return outPath, nil
}

type builder struct {
	cfg      *config.Config
	renderer *charts.Renderer
	figures  map[string]string // figure name -> rendered file path

	// progression caches the two-artifact render so referencing both the
	// PNG and GIF names costs one pass.
	progression *charts.Progression
}

func (b *builder) renderFigure(name string) error {
	sim := b.cfg.Simulation
	maxX := b.cfg.Charts.MaxCTR

	switch name {
	case FigPriors:
		informative, err := bayes.FromCTR(sim.TrueControlCTR, 200)
		if err != nil {
			return err
		}
		path, err := b.renderer.BetaDensities(name+".png", "What we believe before the experiment", []charts.DensityCurve{
			{Label: "uniform Beta(1,1)", Dist: bayes.Uniform()},
			{Label: "Jeffreys Beta(0.5,0.5)", Dist: bayes.Jeffreys()},
			{Label: fmt.Sprintf("informative: %.1f%% CTR, weight 200", sim.TrueControlCTR*100), Dist: informative},
		}, maxX)
		if err != nil {
			return err
		}
		b.figures[name] = path

	case FigPosteriorUpdate, FigPosteriorAnim:
		if b.progression == nil {
			prog, err := b.renderer.PosteriorProgression(
				FigPosteriorUpdate,
				"The posterior after each day of data",
				bayes.Uniform(),
				b.dailyBatches(),
				maxX,
			)
			if err != nil {
				return err
			}
			b.progression = prog
		}
		if name == FigPosteriorUpdate {
			b.figures[name] = b.progression.PNGPath
		} else {
			b.figures[name] = b.progression.GIFPath
		}

	case FigUplift:
		exp := b.observedExperiment()
		snapCmp, err := bayes.Compare(
			mustPosterior(exp.Control, exp.Prior),
			mustPosterior(exp.Treatment, exp.Prior),
			rand.NewSource(sim.Seed),
			bayes.CompareOptions{Samples: sim.Samples, KeepDraws: true},
		)
		if err != nil {
			return err
		}
		path, err := b.renderer.UpliftHistogram(name+".png",
			fmt.Sprintf("Uplift distribution, P(treatment wins) = %.1f%%", snapCmp.ProbTreatmentWins*100),
			snapCmp)
		if err != nil {
			return err
		}
		b.figures[name] = path

	case FigSequential:
		trace, err := simulate.RunSequential(b.sequentialConfig())
		if err != nil {
			return err
		}
		path, err := b.renderer.SequentialTrace(name+".png",
			fmt.Sprintf("Checking after every %d impressions", sim.BatchSize),
			trace, sim.WinProbability)
		if err != nil {
			return err
		}
		b.figures[name] = path

	case FigOperating:
		bars, err := b.operatingBars()
		if err != nil {
			return err
		}
		path, err := b.renderer.VerdictRates(name+".png", "How often the rules get it wrong (and right)", bars)
		if err != nil {
			return err
		}
		b.figures[name] = path

	default:
		return fmt.Errorf("unknown figure name")
	}
	return nil
}

// dailyBatches simulates a few days of control-arm traffic for the
// posterior-update story, deterministically from the configured seed.
func (b *builder) dailyBatches() []charts.Batch {
	sim := b.cfg.Simulation
	stream, err := simulate.NewClickStream(sim.TrueControlCTR, sim.Seed+100)
	if err != nil {
		// replay of a validated config; rates were range-checked at load
		panic(err)
	}

	const days, perDay = 4, 500
	batches := make([]charts.Batch, days)
	for i := range batches {
		clicks := stream.Batch(perDay)
		batches[i] = charts.Batch{
			Label:      fmt.Sprintf("day %d", i+1),
			Clicked:    clicks,
			NotClicked: perDay - clicks,
		}
	}
	return batches
}

func (b *builder) observedExperiment() experiment.Experiment {
	sim := b.cfg.Simulation
	return experiment.Experiment{
		Control:   experiment.Variant{Name: "control", Impressions: sim.ControlImpressions, Clicks: sim.ControlClicks},
		Treatment: experiment.Variant{Name: "treatment", Impressions: sim.TreatmentImpressions, Clicks: sim.TreatmentClicks},
		Prior:     bayes.Uniform(),
	}
}

func (b *builder) sequentialConfig() simulate.SequentialConfig {
	sim := b.cfg.Simulation
	return simulate.SequentialConfig{
		ControlCTR:   sim.TrueControlCTR,
		TreatmentCTR: sim.TrueTreatmentCTR,
		BatchSize:    sim.BatchSize,
		MaxPerArm:    sim.MaxPerArm,
		Prior:        bayes.Uniform(),
		Rules: experiment.Rules{
			WinProbability:  sim.WinProbability,
			MaxExpectedLoss: sim.MaxExpectedLoss,
			MinImpressions:  sim.MinImpressions,
		},
		Samples: sim.Samples,
		Seed:    sim.Seed,
	}
}

// operatingBars runs the A/A and real-uplift studies behind the deck's
// "how often are we wrong" slide.
func (b *builder) operatingBars() ([]charts.VerdictBar, error) {
	sim := b.cfg.Simulation

	aa := b.sequentialConfig()
	aa.TreatmentCTR = aa.ControlCTR
	aaResult, err := simulate.RunStudy(simulate.StudyConfig{
		Base:       aa,
		Replicates: sim.Replicates,
		Workers:    sim.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("A/A study: %w", err)
	}

	abResult, err := simulate.RunStudy(simulate.StudyConfig{
		Base:       b.sequentialConfig(),
		Replicates: sim.Replicates,
		Workers:    sim.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("uplift study: %w", err)
	}

	uplift := (sim.TrueTreatmentCTR - sim.TrueControlCTR) / sim.TrueControlCTR * 100
	return []charts.VerdictBar{
		{Label: "false decision under A/A", Rate: aaResult.DecisionRate},
		{Label: fmt.Sprintf("winner found at %+.0f%% uplift", uplift), Rate: abResult.DecisionRate},
		{Label: "correct winner picked", Rate: abResult.TreatmentWinRate},
	}, nil
}

func mustPosterior(v experiment.Variant, prior bayes.Beta) bayes.Beta {
	post, err := v.Posterior(prior)
	if err != nil {
		// counts were validated when the config loaded
		panic(err)
	}
	return post
}
