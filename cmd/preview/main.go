package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/betadeck/internal/config"
)

// preview serves the rendered deck directory for presenting. It serves
// static files only; building and publishing stay in cmd/deckgen.
func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (optional)")
		dir        = flag.String("dir", "", "rendered deck directory, overrides config")
		port       = flag.Int("port", 0, "listen port, overrides config")
	)
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else {
		cfg = config.Default()
	}
	if *dir != "" {
		cfg.Build.OutputDir = *dir
	}
	if *port != 0 {
		cfg.Preview.Port = *port
	}

	if _, err := os.Stat(cfg.Build.OutputDir); err != nil {
		log.Fatalf("Output directory %s not found; run deckgen first", cfg.Build.OutputDir)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		MaxAge:         300,
	}))

	fs := http.FileServer(http.Dir(cfg.Build.OutputDir))
	r.Handle("/*", fs)

	addr := fmt.Sprintf("%s:%d", cfg.Preview.Host, cfg.Preview.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Presenting %s at http://%s/", cfg.Build.OutputDir, addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Preview server failed: %v", err)
	}
}
