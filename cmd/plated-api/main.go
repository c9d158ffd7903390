package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/AdrianVollmer/Plated/internal/config"
	"github.com/AdrianVollmer/Plated/internal/extract"
	"github.com/AdrianVollmer/Plated/internal/fetch"
	server "github.com/AdrianVollmer/Plated/internal/http"
	"github.com/AdrianVollmer/Plated/internal/jobs"
	"github.com/AdrianVollmer/Plated/internal/llm"
	"github.com/AdrianVollmer/Plated/internal/migrate"
	"github.com/AdrianVollmer/Plated/internal/store"
	"github.com/AdrianVollmer/Plated/internal/store/memstore"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	var (
		st jobs.Store
		db *sql.DB
	)
	if cfg.Database.DSN != "" {
		// Run migrations on a short-lived connection
		if err := migrate.Run(cfg.Database.DSN); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}

		// Create a shared *sql.DB with pooling for the Store
		var err error
		db, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db failed: %v", err)
		}
		// Basic pool settings; adjust as needed
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)

		st = store.New(db)
	} else {
		// No database configured; jobs and settings live in memory and
		// are lost on restart.
		logger.Warn("no database DSN configured, using in-memory store")
		st = memstore.New()
	}

	fetchOpts := fetch.Options{
		UserAgent:     cfg.Fetcher.UserAgent,
		Markdownify:   cfg.Fetcher.Markdownify,
		RespectRobots: cfg.Robots.Respect,
	}
	var fetcher fetch.Fetcher
	if cfg.Rod.Enabled {
		fetcher = fetch.NewRodFetcher(cfg.Rod.BrowserURL, fetchOpts)
	} else {
		fetcher = fetch.NewHTTPFetcher(fetchOpts)
	}

	svc := extract.NewService(fetcher, llm.NewClient(logger), logger)

	rootCtx := context.Background()
	disp := jobs.NewDispatcher(rootCtx, st, svc, nil, logger)

	jobs.StartRetentionLoop(rootCtx, cfg, st, logger)

	s := server.NewServer(cfg, st, disp, db, logger)
	if err := s.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
