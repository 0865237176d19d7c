package builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/betadeck/internal/config"
)

const testDeck = `
title: "Bayesian A/B Testing"
author: "Data Team"
slides:
  - title: "Bayesian A/B Testing"
    layout: title
    body: "Priors, posteriors, stopping rules."
  - title: "Priors"
    body: "Three reasonable starting points."
    figure: priors
  - title: "Updating"
    body: "Conjugacy makes it addition."
    figure: posterior_updates
  - title: "Updating, animated"
    figure: posterior_updates_anim
  - title: "Uplift"
    body: "The whole distribution, not a point estimate."
    figure: uplift
  - title: "Stopping"
    body: "Peek responsibly."
    figure: sequential_trace
  - title: "Operating characteristics"
    figure: operating_characteristics
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	deckPath := filepath.Join(dir, "deck.yaml")
	require.NoError(t, os.WriteFile(deckPath, []byte(testDeck), 0644))

	cfg := config.Default()
	cfg.Build.DeckPath = deckPath
	cfg.Build.OutputDir = filepath.Join(dir, "public")
	cfg.Charts.WidthInches = 4
	cfg.Charts.HeightInches = 2.5
	// Tiny simulation sizes: the test exercises wiring, not statistics.
	cfg.Simulation.Samples = 2000
	cfg.Simulation.BatchSize = 1000
	cfg.Simulation.MaxPerArm = 3000
	cfg.Simulation.MinImpressions = 1000
	cfg.Simulation.Replicates = 5
	cfg.Simulation.Workers = 2
	return cfg
}

func TestBuild_FullDeck(t *testing.T) {
	if testing.Short() {
		t.Skip("full build renders every figure")
	}
	cfg := testConfig(t)

	out, err := Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Build.OutputDir, "index.html"), out)

	// index.html links to the figures directory it is served beside.
	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Bayesian A/B Testing")
	assert.Contains(t, string(html), `src="figures/priors.png"`)
	assert.Contains(t, string(html), `src="figures/posterior_updates.gif"`)
	assert.NotContains(t, string(html), "base64")

	// standalone.html embeds everything in one portable file.
	standalone, err := os.ReadFile(filepath.Join(cfg.Build.OutputDir, "standalone.html"))
	require.NoError(t, err)
	assert.Contains(t, string(standalone), "data:image/png;base64,")
	assert.Contains(t, string(standalone), "data:image/gif;base64,")

	// Figures are also kept on disk next to the deck.
	entries, err := os.ReadDir(filepath.Join(cfg.Build.OutputDir, "figures"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "priors.png")
	assert.Contains(t, names, "posterior_updates.gif")
}

func TestBuild_UnknownFigure(t *testing.T) {
	cfg := testConfig(t)
	bad := strings.Replace(testDeck, "figure: priors", "figure: mystery", 1)
	require.NoError(t, os.WriteFile(cfg.Build.DeckPath, []byte(bad), 0644))

	_, err := Build(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestBuild_MissingDeck(t *testing.T) {
	cfg := testConfig(t)
	cfg.Build.DeckPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestBuild_OnlyReferencedFiguresRender(t *testing.T) {
	cfg := testConfig(t)
	small := `
title: "Just priors"
author: "Data Team"
slides:
  - title: "Priors"
    body: "One figure only."
    figure: priors
`
	require.NoError(t, os.WriteFile(cfg.Build.DeckPath, []byte(small), 0644))

	_, err := Build(cfg)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(cfg.Build.OutputDir, "figures"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "priors.png", entries[0].Name())
}
