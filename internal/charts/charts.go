// Package charts renders the deck's narrative figures as PNG (plus an
// animated GIF for the posterior-update sequence) using gonum/plot.
package charts

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ignite/betadeck/internal/bayes"
	"github.com/ignite/betadeck/internal/simulate"
)

// densityGridSteps is the x-resolution of density curves. 600 points keeps
// curves smooth at slide size without bloating render time.
const densityGridSteps = 600

// Renderer writes figures into OutDir at a fixed slide-friendly size.
type Renderer struct {
	OutDir string
	Width  vg.Length
	Height vg.Length
}

// NewRenderer creates OutDir if needed. Zero width/height fall back to a
// 16:10 slide figure.
func NewRenderer(outDir string, widthIn, heightIn float64) (*Renderer, error) {
	if outDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating figure directory: %w", err)
	}
	r := &Renderer{OutDir: outDir, Width: vg.Length(widthIn) * vg.Inch, Height: vg.Length(heightIn) * vg.Inch}
	if widthIn <= 0 {
		r.Width = 8 * vg.Inch
	}
	if heightIn <= 0 {
		r.Height = 5 * vg.Inch
	}
	return r, nil
}

func (r *Renderer) path(name string) string {
	return filepath.Join(r.OutDir, name)
}

func (r *Renderer) save(p *plot.Plot, name string) (string, error) {
	start := time.Now()
	out := r.path(name)
	if err := p.Save(r.Width, r.Height, out); err != nil {
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	log.Printf("[charts] rendered %s in %s", name, time.Since(start).Round(time.Millisecond))
	return out, nil
}

// DensityCurve labels one Beta density on a shared plot.
type DensityCurve struct {
	Label string
	Dist  bayes.Beta
}

// BetaDensities draws several Beta densities over [0, maxX] on one plot.
// maxX <= 0 plots the full unit interval; CTR narratives pass ~0.1 so the
// interesting region fills the frame.
func (r *Renderer) BetaDensities(name, title string, curves []DensityCurve, maxX float64) (string, error) {
	if len(curves) == 0 {
		return "", fmt.Errorf("no curves to draw")
	}
	if maxX <= 0 || maxX > 1 {
		maxX = 1
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "click-through rate"
	p.Y.Label.Text = "density"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, c := range curves {
		line, err := plotter.NewLine(densityXYs(c.Dist, maxX))
		if err != nil {
			return "", fmt.Errorf("curve %q: %w", c.Label, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(c.Label, line)
	}

	return r.save(p, name)
}

func densityXYs(b bayes.Beta, maxX float64) plotter.XYs {
	xys := make(plotter.XYs, 0, densityGridSteps)
	for i := 1; i < densityGridSteps; i++ {
		x := maxX * float64(i) / densityGridSteps
		xys = append(xys, plotter.XY{X: x, Y: b.PDF(x)})
	}
	return xys
}

// UpliftHistogram draws the Monte Carlo relative-uplift distribution with the
// 95% credible interval shaded. The comparison must have been run with
// KeepDraws.
func (r *Renderer) UpliftHistogram(name, title string, cmp *bayes.Comparison) (string, error) {
	if len(cmp.Uplift) == 0 {
		return "", fmt.Errorf("comparison has no retained draws; rerun with KeepDraws")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "relative uplift (treatment vs control)"
	p.Y.Label.Text = "density"

	vals := make(plotter.Values, len(cmp.Uplift))
	copy(vals, cmp.Uplift)
	h, err := plotter.NewHist(vals, 50)
	if err != nil {
		return "", fmt.Errorf("building histogram: %w", err)
	}
	h.Normalize(1)
	h.FillColor = plotutil.Color(2)
	p.Add(h)

	_, maxY := histMaxY(h)
	band, err := plotter.NewPolygon(plotter.XYs{
		{X: cmp.UpliftLow, Y: 0},
		{X: cmp.UpliftHigh, Y: 0},
		{X: cmp.UpliftHigh, Y: maxY},
		{X: cmp.UpliftLow, Y: maxY},
	})
	if err != nil {
		return "", err
	}
	band.Color = color.NRGBA{R: 108, G: 182, B: 255, A: 56}
	band.LineStyle.Color = color.Transparent
	p.Add(band)
	p.Legend.Add(fmt.Sprintf("95%%: %+.1f%% to %+.1f%%", cmp.UpliftLow*100, cmp.UpliftHigh*100), band)

	median, err := plotter.NewLine(plotter.XYs{{X: cmp.UpliftMedian, Y: 0}, {X: cmp.UpliftMedian, Y: maxY}})
	if err != nil {
		return "", err
	}
	median.Color = plotutil.Color(0)
	median.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(median)
	p.Legend.Add(fmt.Sprintf("median: %+.1f%%", cmp.UpliftMedian*100), median)
	p.Legend.Top = true

	return r.save(p, name)
}

func histMaxY(h *plotter.Histogram) (minY, maxY float64) {
	_, _, minY, maxY = h.DataRange()
	return minY, maxY
}

// SequentialTrace plots P(treatment > control) against impressions per arm,
// with the decision thresholds drawn as horizontal rules.
func (r *Renderer) SequentialTrace(name, title string, trace *simulate.Trace, winThreshold float64) (string, error) {
	if len(trace.Checkpoints) == 0 {
		return "", fmt.Errorf("trace has no checkpoints")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "impressions per arm"
	p.Y.Label.Text = "P(treatment > control)"
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(trace.Checkpoints))
	for i, cp := range trace.Checkpoints {
		xys[i] = plotter.XY{X: float64(cp.PerArm), Y: cp.ProbTreatmentWins}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return "", err
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("win probability", line)

	maxX := float64(trace.Checkpoints[len(trace.Checkpoints)-1].PerArm)
	var rule *plotter.Line
	for _, y := range []float64{winThreshold, 1 - winThreshold} {
		rule, err = plotter.NewLine(plotter.XYs{{X: 0, Y: y}, {X: maxX, Y: y}})
		if err != nil {
			return "", err
		}
		rule.Color = plotutil.Color(1)
		rule.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(rule)
	}
	p.Legend.Add(fmt.Sprintf("decision thresholds (%.2f)", winThreshold), rule)
	p.Legend.Top = true

	return r.save(p, name)
}

// VerdictBars charts stopping-rule outcome rates (false positives under A/A,
// power under a real uplift) from one or more studies.
type VerdictBar struct {
	Label string
	Rate  float64
}

// VerdictRates draws one bar per study outcome rate.
func (r *Renderer) VerdictRates(name, title string, bars []VerdictBar) (string, error) {
	if len(bars) == 0 {
		return "", fmt.Errorf("no bars to draw")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "share of simulated experiments"
	p.Y.Min, p.Y.Max = 0, 1

	vals := make(plotter.Values, len(bars))
	labels := make([]string, len(bars))
	for i, b := range bars {
		vals[i] = b.Rate
		labels[i] = b.Label
	}

	chart, err := plotter.NewBarChart(vals, vg.Points(40))
	if err != nil {
		return "", fmt.Errorf("building bar chart: %w", err)
	}
	chart.Color = plotutil.Color(2)
	p.Add(chart)
	p.NominalX(labels...)

	return r.save(p, name)
}
