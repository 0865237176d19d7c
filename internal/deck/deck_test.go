package deck

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDeck = `
title: "Bayesian A/B Testing"
author: "Data Team"
event: "GopherCon"
date: "2026-09-12"
theme: midnight
slides:
  - title: "Bayesian A/B Testing"
    layout: title
    body: "Priors, posteriors, and knowing when to stop."
  - title: "Three priors"
    body: |
      A **prior** encodes what we believe before the experiment.

      - uniform: anything goes
      - informative: last quarter's CTR
    figure: priors
    notes: "Mention the pseudo-observation framing."
  - title: "The update rule"
    body: "posterior_shape1 = prior_shape1 + clicked"
`

func writeDeck(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeFigure(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "priors.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return path
}

func TestLoad(t *testing.T) {
	d, err := Load(writeDeck(t, sampleDeck))
	require.NoError(t, err)
	assert.Equal(t, "Bayesian A/B Testing", d.Title)
	assert.Len(t, d.Slides, 3)
	assert.Equal(t, []string{"priors"}, d.FigureNames())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing title", "slides:\n  - title: x\n"},
		{"no slides", "title: x\n"},
		{"empty slide", "title: x\nslides:\n  - notes: only notes\n"},
		{"bad layout", "title: x\nslides:\n  - title: y\n    layout: hero\n"},
		{"bad yaml", "title: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeDeck(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCheckFigures(t *testing.T) {
	d, err := Load(writeDeck(t, sampleDeck))
	require.NoError(t, err)

	assert.Error(t, d.CheckFigures(map[string]string{}))
	assert.NoError(t, d.CheckFigures(map[string]string{"priors": "x.png"}))
}

func TestProseHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraph", "hello world", "<p>hello world</p>\n"},
		{"bold", "a **b** c", "<p>a <strong>b</strong> c</p>\n"},
		{"emphasis", "a *b* c", "<p>a <em>b</em> c</p>\n"},
		{"code", "run `go test`", "<p>run <code>go test</code></p>\n"},
		{"escapes entities", "1 < 2", "<p>1 &lt; 2</p>\n"},
		{"escaped asterisks stay literal", `the grid has 2\*3\*4 cells`, "<p>the grid has 2*3*4 cells</p>\n"},
		{"bullets", "- one\n- two", "<ul>\n<li>one</li>\n<li>two</li>\n</ul>\n"},
		{"mixed blocks", "intro\n\n- a\n- b", "<p>intro</p>\n<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := proseHTML(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProseHTML_DropsRawHTML(t *testing.T) {
	got, err := proseHTML("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, got, "<script>")
}

func TestTemplateEngineFilters(t *testing.T) {
	te := NewTemplateEngine()

	out, err := te.Render("", `{{ rate | percentage }}`, map[string]interface{}{"rate": 0.042})
	require.NoError(t, err)
	assert.Equal(t, "4.2%", out)

	out, err = te.Render("", `{{ n | number_with_delimiter }}`, map[string]interface{}{"n": 1234567})
	require.NoError(t, err)
	assert.Equal(t, "1,234,567", out)

	out, err = te.Render("", `{{ who | default: "anonymous" }}`, map[string]interface{}{"who": ""})
	require.NoError(t, err)
	assert.Equal(t, "anonymous", out)

	_, err = te.Render("", `{% broken`, nil)
	assert.Error(t, err)
}

func TestRenderWithMode(t *testing.T) {
	te := NewTemplateEngine()

	// lax: missing variables render empty
	out, err := te.RenderWithMode("", `hi {{ nobody }}`, map[string]interface{}{}, RenderModeLax)
	require.NoError(t, err)
	assert.Equal(t, "hi ", out)

	// strict: missing variables fail the render
	_, err = te.RenderWithMode("", `hi {{ nobody }}`, map[string]interface{}{}, RenderModeStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody")

	// strict: defined variables, nested paths, and loop variables pass
	ctx := map[string]interface{}{
		"who":   "gophers",
		"deck":  map[string]interface{}{"title": "x"},
		"items": []string{"a", "b"},
	}
	out, err = te.RenderWithMode("",
		`{{ who }} {{ deck.title }}{% for item in items %} {{ item }} {{ forloop.index }}{% endfor %}`,
		ctx, RenderModeStrict)
	require.NoError(t, err)
	assert.Equal(t, "gophers x a 1 b 2", out)

	// strict: undefined nested path fails
	_, err = te.RenderWithMode("", `{{ deck.author }}`, ctx, RenderModeStrict)
	assert.Error(t, err)
}

func TestTemplateEngineCache(t *testing.T) {
	te := NewTemplateEngine()
	out1, err := te.Render("k", `hello {{ name }}`, map[string]interface{}{"name": "a"})
	require.NoError(t, err)
	out2, err := te.Render("k", `ignored because cached`, map[string]interface{}{"name": "b"})
	require.NoError(t, err)
	assert.Equal(t, "hello a", out1)
	assert.Equal(t, "hello b", out2)
}

func TestRenderHTML(t *testing.T) {
	d, err := Load(writeDeck(t, sampleDeck))
	require.NoError(t, err)

	html, err := RenderHTML(d, NewTemplateEngine(), map[string]string{"priors": writeFigure(t)}, FiguresEmbedded)
	require.NoError(t, err)

	assert.Contains(t, html, "<title>Bayesian A/B Testing</title>")
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, html, "<strong>prior</strong>")
	assert.Contains(t, html, "Mention the pseudo-observation framing.")
	// midnight theme colors
	assert.Contains(t, html, "#10141a")
}

func TestRenderHTML_Linked(t *testing.T) {
	d, err := Load(writeDeck(t, sampleDeck))
	require.NoError(t, err)

	// linked mode uses hrefs verbatim and never reads figure files
	html, err := RenderHTML(d, NewTemplateEngine(), map[string]string{"priors": "figures/priors.png"}, FiguresLinked)
	require.NoError(t, err)

	assert.Contains(t, html, `src="figures/priors.png"`)
	assert.NotContains(t, html, "base64")
}

func TestRenderHTML_Errors(t *testing.T) {
	d, err := Load(writeDeck(t, sampleDeck))
	require.NoError(t, err)
	te := NewTemplateEngine()

	// missing figure
	_, err = RenderHTML(d, te, map[string]string{}, FiguresEmbedded)
	assert.Error(t, err)

	// unreadable figure path
	_, err = RenderHTML(d, te, map[string]string{"priors": filepath.Join(t.TempDir(), "nope.png")}, FiguresEmbedded)
	assert.Error(t, err)

	// unknown theme
	d.Theme = "neon"
	_, err = RenderHTML(d, te, map[string]string{"priors": writeFigure(t)}, FiguresEmbedded)
	assert.Error(t, err)
}
