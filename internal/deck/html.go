package deck

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// deckTemplate is the Liquid source for the whole presentation: one HTML
// file, arrow-key navigation, speaker notes behind the "n" key.
const deckTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ title }}</title>
<style>
:root { --bg: {{ theme_bg }}; --fg: {{ theme_fg }}; --accent: {{ theme_accent }}; }
html, body { margin: 0; height: 100%; background: var(--bg); color: var(--fg);
  font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; }
.slide { display: none; box-sizing: border-box; height: 100vh; padding: 4vh 6vw; }
.slide.active { display: flex; flex-direction: column; }
.slide h1 { font-size: 3.2em; margin: 0 0 0.3em; color: var(--accent); }
.slide h2 { font-size: 2.1em; margin: 0 0 0.5em; color: var(--accent); }
.slide .body { font-size: 1.4em; line-height: 1.5; max-width: 46em; }
.slide .body code { background: rgba(127,127,127,0.2); padding: 0 0.25em; border-radius: 3px; }
.slide.layout-title { justify-content: center; text-align: center; }
.slide.layout-title .meta { font-size: 1.2em; opacity: 0.7; margin-top: 2em; }
.slide .figure { flex: 1; display: flex; align-items: center; justify-content: center; min-height: 0; }
.slide .figure img { max-width: 100%; max-height: 100%; }
.slide.layout-split { flex-direction: row; gap: 4vw; align-items: center; }
.slide.layout-split .body { flex: 1; }
.slide.layout-split .figure { flex: 1.3; }
.notes { display: none; position: fixed; bottom: 0; left: 0; right: 0;
  background: rgba(0,0,0,0.85); color: #eee; padding: 1em 2em; font-size: 0.95em; }
.notes.visible { display: block; }
.counter { position: fixed; bottom: 1em; right: 1.5em; opacity: 0.5; font-size: 0.9em; }
</style>
</head>
<body>
{% for slide in slides %}
<section class="slide layout-{{ slide.layout }}{% if forloop.first %} active{% endif %}" data-index="{{ forloop.index }}">
  {% if slide.layout == "title" %}
  <h1>{{ slide.title | escape }}</h1>
  <div class="body">{{ slide.body_html }}</div>
  <div class="meta">{{ author | escape }}{% if event != "" %} &middot; {{ event | escape }}{% endif %}{% if date != "" %} &middot; {{ date | escape }}{% endif %}</div>
  {% else %}
  {% if slide.title != "" %}<h2>{{ slide.title | escape }}</h2>{% endif %}
  {% if slide.layout == "split" %}
  <div class="body">{{ slide.body_html }}</div>
  {% if slide.figure_src != "" %}<div class="figure"><img src="{{ slide.figure_src }}" alt="{{ slide.figure_name }}"></div>{% endif %}
  {% else %}
  <div class="body">{{ slide.body_html }}</div>
  {% if slide.figure_src != "" %}<div class="figure"><img src="{{ slide.figure_src }}" alt="{{ slide.figure_name }}"></div>{% endif %}
  {% endif %}
  {% endif %}
  {% if slide.notes != "" %}<div class="notes" data-notes>{{ slide.notes | escape }}</div>{% endif %}
</section>
{% endfor %}
<div class="counter"><span id="current">1</span> / {{ slide_count }}</div>
<script>
(function () {
  var slides = document.querySelectorAll(".slide");
  var current = 0;
  function show(i) {
    if (i < 0 || i >= slides.length) return;
    slides[current].classList.remove("active");
    current = i;
    slides[current].classList.add("active");
    document.getElementById("current").textContent = current + 1;
  }
  document.addEventListener("keydown", function (e) {
    if (e.key === "ArrowRight" || e.key === " " || e.key === "PageDown") show(current + 1);
    if (e.key === "ArrowLeft" || e.key === "PageUp") show(current - 1);
    if (e.key === "n") {
      var notes = slides[current].querySelector("[data-notes]");
      if (notes) notes.classList.toggle("visible");
    }
  });
})();
</script>
</body>
</html>
`

// themes maps theme names to background/foreground/accent colors.
var themes = map[string][3]string{
	"light":    {"#fafafa", "#1c1c1c", "#0b5fa5"},
	"midnight": {"#10141a", "#e8e8e8", "#6cb6ff"},
}

// FigureMode selects how slide figures are referenced from the HTML.
type FigureMode int

const (
	// FiguresEmbedded inlines each figure as a base64 data URI, producing a
	// single self-contained file. Figure map values are rendered file paths.
	FiguresEmbedded FigureMode = iota
	// FiguresLinked emits the figure map values verbatim as img sources, for
	// a document served next to its assets directory.
	FiguresLinked
)

// RenderHTML renders the deck to one HTML document. figures maps figure
// names to file paths (FiguresEmbedded) or hrefs (FiguresLinked).
func RenderHTML(d *Deck, te *TemplateEngine, figures map[string]string, mode FigureMode) (string, error) {
	if err := d.CheckFigures(figures); err != nil {
		return "", err
	}

	theme, ok := themes[d.Theme]
	if !ok {
		if d.Theme != "" {
			return "", fmt.Errorf("unknown theme %q", d.Theme)
		}
		theme = themes["light"]
	}

	slides := make([]map[string]interface{}, 0, len(d.Slides))
	for _, s := range d.Slides {
		bodyHTML, err := proseHTML(s.Body)
		if err != nil {
			return "", fmt.Errorf("slide %q: %w", s.Title, err)
		}
		entry := map[string]interface{}{
			"title":       s.Title,
			"body_html":   bodyHTML,
			"notes":       s.Notes,
			"layout":      layoutOrDefault(s),
			"figure_src":  "",
			"figure_name": s.Figure,
		}
		if s.Figure != "" {
			if mode == FiguresLinked {
				entry["figure_src"] = figures[s.Figure]
			} else {
				src, err := dataURI(figures[s.Figure])
				if err != nil {
					return "", fmt.Errorf("embedding figure %q: %w", s.Figure, err)
				}
				entry["figure_src"] = src
			}
		}
		slides = append(slides, entry)
	}

	return te.RenderWithMode("deck-html", deckTemplate, map[string]interface{}{
		"title":        d.Title,
		"author":       d.Author,
		"event":        d.Event,
		"date":         d.Date,
		"theme_bg":     theme[0],
		"theme_fg":     theme[1],
		"theme_accent": theme[2],
		"slides":       slides,
		"slide_count":  len(d.Slides),
	}, RenderModeStrict)
}

func layoutOrDefault(s Slide) string {
	if s.Layout != "" {
		return s.Layout
	}
	if s.Figure != "" && strings.TrimSpace(s.Body) != "" {
		return "split"
	}
	return "plain"
}

func dataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var mime string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".gif":
		mime = "image/gif"
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".svg":
		mime = "image/svg+xml"
	default:
		return "", fmt.Errorf("unsupported figure format %q", filepath.Ext(path))
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
