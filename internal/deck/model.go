// Package deck loads the YAML slide source and renders it into a single
// self-contained HTML presentation with the narrative figures embedded.
package deck

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Deck is the parsed slide source.
type Deck struct {
	Title  string  `yaml:"title"`
	Author string  `yaml:"author"`
	Event  string  `yaml:"event"`
	Date   string  `yaml:"date"`
	Theme  string  `yaml:"theme"`
	Slides []Slide `yaml:"slides"`
}

// Slide is one screen of the presentation. Body prose supports paragraphs,
// "- " bullet lists, **bold**, *emphasis* and `code`.
type Slide struct {
	Title  string `yaml:"title"`
	Body   string `yaml:"body"`
	Figure string `yaml:"figure"` // name of a rendered figure, empty for prose-only slides
	Notes  string `yaml:"notes"`  // speaker notes, rendered into a toggleable footer
	Layout string `yaml:"layout"` // "", "title", or "split"
}

// Load reads and validates a deck source file.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deck source: %w", err)
	}
	var d Deck
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing deck source: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks structural requirements before any rendering happens.
func (d *Deck) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("deck title is required")
	}
	if len(d.Slides) == 0 {
		return fmt.Errorf("deck has no slides")
	}
	for i, s := range d.Slides {
		if strings.TrimSpace(s.Title) == "" && strings.TrimSpace(s.Body) == "" && s.Figure == "" {
			return fmt.Errorf("slide %d is empty", i+1)
		}
		switch s.Layout {
		case "", "title", "split":
		default:
			return fmt.Errorf("slide %d: unknown layout %q", i+1, s.Layout)
		}
	}
	return nil
}

// FigureNames returns the distinct figure names the deck references, in
// slide order. The builder uses this to know what to render.
func (d *Deck) FigureNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, s := range d.Slides {
		if s.Figure != "" && !seen[s.Figure] {
			seen[s.Figure] = true
			names = append(names, s.Figure)
		}
	}
	return names
}

// CheckFigures errors when a slide references a figure that was not rendered.
func (d *Deck) CheckFigures(available map[string]string) error {
	var missing []string
	for _, name := range d.FigureNames() {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("deck references unrendered figures: %s", strings.Join(missing, ", "))
	}
	return nil
}
