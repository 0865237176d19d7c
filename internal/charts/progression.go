package charts

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"log"
	"os"

	xdraw "golang.org/x/image/draw"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ignite/betadeck/internal/bayes"
)

// gifWidth fixes the pixel size of animation frames; height follows the
// renderer's aspect ratio.
const gifWidth = 720

// frameDelay is the per-frame GIF delay in hundredths of a second.
const frameDelay = 80

// Batch is one increment of observed data in the posterior progression.
type Batch struct {
	Label      string `json:"label" yaml:"label"`
	Clicked    int    `json:"clicked" yaml:"clicked"`
	NotClicked int    `json:"not_clicked" yaml:"not_clicked"`
}

// Progression holds the rendered artifacts of the prior-to-posterior story.
type Progression struct {
	PNGPath string // all densities overlaid
	GIFPath string // one frame per update
}

// PosteriorProgression renders the deck's conjugate-updating sequence: the
// prior, then the posterior after each cumulative batch. It writes a single
// overlay PNG and an animated GIF stepping through the frames.
func (r *Renderer) PosteriorProgression(name, title string, prior bayes.Beta, batches []Batch, maxX float64) (*Progression, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("no batches to apply")
	}
	if maxX <= 0 || maxX > 1 {
		maxX = 1
	}

	// Walk the updates once, keeping every intermediate posterior.
	curves := []DensityCurve{{Label: "prior", Dist: prior}}
	current := prior
	for _, b := range batches {
		next, err := current.Update(b.Clicked, b.NotClicked)
		if err != nil {
			return nil, fmt.Errorf("batch %q: %w", b.Label, err)
		}
		current = next
		curves = append(curves, DensityCurve{
			Label: fmt.Sprintf("after %s (+%d/+%d)", b.Label, b.Clicked, b.Clicked+b.NotClicked),
			Dist:  current,
		})
	}

	pngPath, err := r.BetaDensities(name+".png", title, curves, maxX)
	if err != nil {
		return nil, err
	}

	// The final posterior has the tallest peak; pin the y-axis to it so the
	// animation holds a fixed frame.
	peak := densityPeak(current, maxX)

	anim := &gif.GIF{}
	for i, c := range curves {
		frame, err := r.renderFrame(title, curves[:i+1], c, maxX, peak)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, frameDelay)
	}
	// Hold the final posterior a little longer before looping.
	anim.Delay[len(anim.Delay)-1] = frameDelay * 3

	gifPath := r.path(name + ".gif")
	f, err := os.Create(gifPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", gifPath, err)
	}
	defer f.Close()
	if err := gif.EncodeAll(f, anim); err != nil {
		return nil, fmt.Errorf("encoding gif: %w", err)
	}
	log.Printf("[charts] rendered %s.gif (%d frames)", name, len(anim.Image))

	return &Progression{PNGPath: pngPath, GIFPath: gifPath}, nil
}

// renderFrame draws earlier curves faded and the newest curve highlighted,
// then converts the plot into a paletted GIF frame.
func (r *Renderer) renderFrame(title string, shown []DensityCurve, newest DensityCurve, maxX, yMax float64) (*image.Paletted, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "click-through rate"
	p.Y.Label.Text = "density"
	p.X.Min, p.X.Max = 0, maxX
	p.Y.Min, p.Y.Max = 0, yMax*1.05
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for _, c := range shown {
		line, err := plotter.NewLine(densityXYs(c.Dist, maxX))
		if err != nil {
			return nil, err
		}
		if c.Label == newest.Label {
			line.Color = plotutil.Color(0)
			line.Width = vg.Points(2)
			p.Legend.Add(c.Label, line)
		} else {
			line.Color = plotutil.Color(3)
			line.Width = vg.Points(0.75)
		}
		p.Add(line)
	}

	wt, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decoding frame png: %w", err)
	}

	// Scale to the shared frame size, then dither onto the GIF palette.
	bounds := img.Bounds()
	h := gifWidth * bounds.Dy() / bounds.Dx()
	scaled := image.NewRGBA(image.Rect(0, 0, gifWidth, h))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)

	paletted := image.NewPaletted(scaled.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(paletted, scaled.Bounds(), scaled, image.Point{})
	return paletted, nil
}

func densityPeak(b bayes.Beta, maxX float64) float64 {
	peak := 0.0
	for i := 1; i < densityGridSteps; i++ {
		x := maxX * float64(i) / densityGridSteps
		if y := b.PDF(x); y > peak {
			peak = y
		}
	}
	return peak
}
