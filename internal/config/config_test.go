package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
build:
  deck_path: "talks/bayes.yaml"
  output_dir: "dist"

charts:
  width_inches: 10
  height_inches: 6
  max_ctr: 0.2

simulation:
  seed: 7
  samples: 50000
  control_impressions: 8000
  control_clicks: 320
  treatment_impressions: 8000
  treatment_clicks: 390
  true_control_ctr: 0.04
  true_treatment_ctr: 0.05
  batch_size: 1000
  max_per_arm: 30000
  win_probability: 0.99
  min_impressions: 4000
  replicates: 1000

publish:
  bucket: "decks.example.com"
  region: "eu-west-1"
  distribution_id: "E123"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "talks/bayes.yaml", cfg.Build.DeckPath)
	assert.Equal(t, "dist", cfg.Build.OutputDir)
	assert.Equal(t, 10.0, cfg.Charts.WidthInches)
	assert.Equal(t, uint64(7), cfg.Simulation.Seed)
	assert.Equal(t, 0.99, cfg.Simulation.WinProbability)
	assert.Equal(t, "decks.example.com", cfg.Publish.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Publish.Region)

	// Unset values fall back to defaults.
	assert.Equal(t, "localhost", cfg.Preview.Host)
	assert.Equal(t, 8080, cfg.Preview.Port)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "deck.yaml", cfg.Build.DeckPath)
	assert.Equal(t, "public", cfg.Build.OutputDir)
	assert.Equal(t, 100_000, cfg.Simulation.Samples)
	assert.Equal(t, 5000, cfg.Simulation.ControlImpressions)
	assert.Equal(t, 200, cfg.Simulation.ControlClicks)
	assert.Equal(t, 0.95, cfg.Simulation.WinProbability)
	assert.Equal(t, "us-east-1", cfg.Publish.Region)
	assert.Empty(t, cfg.Publish.Bucket)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"clicks exceed impressions", "simulation:\n  control_impressions: 100\n  control_clicks: 200\n"},
		{"bad win probability", "simulation:\n  win_probability: 1.5\n"},
		{"bad true ctr", "simulation:\n  true_control_ctr: 1.2\n"},
		{"negative loss", "simulation:\n  max_expected_loss: -0.1\n"},
		{"max_ctr out of range", "charts:\n  max_ctr: 2\n"},
		{"bad yaml", "build: [oops\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("BETADECK_PUBLISH_BUCKET", "env-bucket")
	t.Setenv("BETADECK_PUBLISH_REGION", "us-west-2")
	t.Setenv("BETADECK_DISTRIBUTION_ID", "EENV")

	cfg, err := LoadFromEnv(writeConfig(t, `
publish:
  bucket: "file-bucket"
`))
	require.NoError(t, err)

	assert.Equal(t, "env-bucket", cfg.Publish.Bucket)
	assert.Equal(t, "us-west-2", cfg.Publish.Region)
	assert.Equal(t, "EENV", cfg.Publish.DistributionID)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "deck.yaml", cfg.Build.DeckPath)
	assert.NotZero(t, cfg.Simulation.Seed)
	assert.Equal(t, 500, cfg.Simulation.Replicates)
}
