package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/ignite/betadeck/internal/builder"
	"github.com/ignite/betadeck/internal/config"
	"github.com/ignite/betadeck/internal/publish"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config (optional; defaults ship the talk's numbers)")
		deckPath    = flag.String("deck", "", "deck source file, overrides config")
		outDir      = flag.String("out", "", "output directory, overrides config")
		seed        = flag.Uint64("seed", 0, "simulation seed, overrides config")
		doPublish   = flag.Bool("publish", false, "upload the rendered deck to the configured S3 bucket")
		publishOnly = flag.Bool("publish-only", false, "skip the build and upload the existing output directory")
	)
	flag.Parse()

	log.Println("Starting betadeck build...")

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromEnv(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else {
		cfg = config.Default()
	}
	if *deckPath != "" {
		cfg.Build.DeckPath = *deckPath
	}
	if *outDir != "" {
		cfg.Build.OutputDir = *outDir
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}

	if !*publishOnly {
		start := time.Now()
		out, err := builder.Build(cfg)
		if err != nil {
			log.Fatalf("Build failed: %v", err)
		}
		log.Printf("Deck built: %s (%s)", out, time.Since(start).Round(time.Millisecond))
	}

	if *doPublish || *publishOnly {
		if cfg.Publish.Bucket == "" {
			log.Fatal("Publish requested but no bucket configured (set publish.bucket or BETADECK_PUBLISH_BUCKET)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		pub, err := publish.NewWithAWS(ctx, publish.Options{
			Bucket:         cfg.Publish.Bucket,
			Region:         cfg.Publish.Region,
			Prefix:         cfg.Publish.Prefix,
			CDNDomain:      cfg.Publish.CDNDomain,
			DistributionID: cfg.Publish.DistributionID,
		})
		if err != nil {
			log.Fatalf("Failed to initialize publisher: %v", err)
		}

		res, err := pub.UploadDir(ctx, cfg.Build.OutputDir)
		if err != nil {
			log.Fatalf("Publish failed: %v", err)
		}
		log.Printf("Published %d files: %s", len(res.Uploaded), res.PublicURL)
	}
}
