// Package config loads the deck builder's YAML configuration with optional
// .env overrides for publish credentials-adjacent settings.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the deck builder.
type Config struct {
	Build      BuildConfig      `yaml:"build"`
	Charts     ChartsConfig     `yaml:"charts"`
	Simulation SimulationConfig `yaml:"simulation"`
	Publish    PublishConfig    `yaml:"publish"`
	Preview    PreviewConfig    `yaml:"preview"`
}

// BuildConfig controls inputs and outputs of a deck build.
type BuildConfig struct {
	DeckPath  string `yaml:"deck_path"`
	OutputDir string `yaml:"output_dir"`
}

// ChartsConfig controls figure rendering.
type ChartsConfig struct {
	WidthInches  float64 `yaml:"width_inches"`
	HeightInches float64 `yaml:"height_inches"`
	// MaxCTR bounds the x-axis of density plots so the CTR region fills
	// the frame instead of a sliver of [0,1].
	MaxCTR float64 `yaml:"max_ctr"`
}

// SimulationConfig seeds and sizes all random generation behind the charts.
type SimulationConfig struct {
	Seed    uint64 `yaml:"seed"`
	Samples int    `yaml:"samples"` // Monte Carlo draws per comparison

	// Observed experiment the narrative is built around.
	ControlImpressions   int `yaml:"control_impressions"`
	ControlClicks        int `yaml:"control_clicks"`
	TreatmentImpressions int `yaml:"treatment_impressions"`
	TreatmentClicks      int `yaml:"treatment_clicks"`

	// True CTRs for the sequential-testing and operating-characteristic
	// simulations.
	TrueControlCTR   float64 `yaml:"true_control_ctr"`
	TrueTreatmentCTR float64 `yaml:"true_treatment_ctr"`
	BatchSize        int     `yaml:"batch_size"`
	MaxPerArm        int     `yaml:"max_per_arm"`

	// Stopping rules.
	WinProbability  float64 `yaml:"win_probability"`
	MaxExpectedLoss float64 `yaml:"max_expected_loss"`
	MinImpressions  int     `yaml:"min_impressions"`

	// Operating-characteristic study size.
	Replicates int `yaml:"replicates"`
	Workers    int `yaml:"workers"`
}

// PublishConfig controls the optional S3/CloudFront upload of the rendered
// deck. Publishing is skipped when Bucket is empty.
type PublishConfig struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Prefix         string `yaml:"prefix"`
	CDNDomain      string `yaml:"cdn_domain"`
	DistributionID string `yaml:"distribution_id"`
}

// PreviewConfig controls the local preview server.
type PreviewConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads a YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads .env (if present), then the YAML file, then applies
// environment overrides for publish settings so credentials-adjacent values
// stay out of the checked-in config.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BETADECK_PUBLISH_BUCKET"); v != "" {
		cfg.Publish.Bucket = v
	}
	if v := os.Getenv("BETADECK_PUBLISH_REGION"); v != "" {
		cfg.Publish.Region = v
	}
	if v := os.Getenv("BETADECK_DISTRIBUTION_ID"); v != "" {
		cfg.Publish.DistributionID = v
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given: the shipped
// deck with the narrative numbers from the talk.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Build.DeckPath == "" {
		c.Build.DeckPath = "deck.yaml"
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = "public"
	}
	if c.Charts.WidthInches == 0 {
		c.Charts.WidthInches = 8
	}
	if c.Charts.HeightInches == 0 {
		c.Charts.HeightInches = 5
	}
	if c.Charts.MaxCTR == 0 {
		c.Charts.MaxCTR = 0.12
	}
	if c.Simulation.Seed == 0 {
		c.Simulation.Seed = 20260912 // talk date; any fixed value works
	}
	if c.Simulation.Samples == 0 {
		c.Simulation.Samples = 100_000
	}
	if c.Simulation.ControlImpressions == 0 {
		c.Simulation.ControlImpressions = 5000
		c.Simulation.ControlClicks = 200
	}
	if c.Simulation.TreatmentImpressions == 0 {
		c.Simulation.TreatmentImpressions = 5000
		c.Simulation.TreatmentClicks = 235
	}
	if c.Simulation.TrueControlCTR == 0 {
		c.Simulation.TrueControlCTR = 0.040
	}
	if c.Simulation.TrueTreatmentCTR == 0 {
		c.Simulation.TrueTreatmentCTR = 0.052
	}
	if c.Simulation.BatchSize == 0 {
		c.Simulation.BatchSize = 500
	}
	if c.Simulation.MaxPerArm == 0 {
		c.Simulation.MaxPerArm = 20_000
	}
	if c.Simulation.WinProbability == 0 {
		c.Simulation.WinProbability = 0.95
	}
	if c.Simulation.MinImpressions == 0 {
		c.Simulation.MinImpressions = 2000
	}
	if c.Simulation.Replicates == 0 {
		c.Simulation.Replicates = 500
	}
	if c.Publish.Region == "" {
		c.Publish.Region = "us-east-1"
	}
	if c.Preview.Host == "" {
		c.Preview.Host = "localhost"
	}
	if c.Preview.Port == 0 {
		c.Preview.Port = 8080
	}
}

func (c *Config) validate() error {
	s := c.Simulation
	if s.ControlClicks > s.ControlImpressions {
		return fmt.Errorf("control clicks (%d) exceed impressions (%d)", s.ControlClicks, s.ControlImpressions)
	}
	if s.TreatmentClicks > s.TreatmentImpressions {
		return fmt.Errorf("treatment clicks (%d) exceed impressions (%d)", s.TreatmentClicks, s.TreatmentImpressions)
	}
	if s.TrueControlCTR < 0 || s.TrueControlCTR > 1 || s.TrueTreatmentCTR < 0 || s.TrueTreatmentCTR > 1 {
		return fmt.Errorf("true CTRs must be in [0,1]")
	}
	if s.WinProbability <= 0.5 || s.WinProbability >= 1 {
		return fmt.Errorf("win_probability must be in (0.5,1), got %g", s.WinProbability)
	}
	if s.MaxExpectedLoss < 0 {
		return fmt.Errorf("max_expected_loss must be non-negative")
	}
	if s.BatchSize <= 0 || s.MaxPerArm < s.BatchSize {
		return fmt.Errorf("batch_size must be positive and max_per_arm must cover at least one batch")
	}
	if c.Charts.MaxCTR <= 0 || c.Charts.MaxCTR > 1 {
		return fmt.Errorf("charts max_ctr must be in (0,1], got %g", c.Charts.MaxCTR)
	}
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		return fmt.Errorf("preview port %d out of range", c.Preview.Port)
	}
	return nil
}
