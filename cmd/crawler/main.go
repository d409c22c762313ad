package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"natro/internal/config"
	"natro/internal/crawl"
	"natro/internal/store"
)

func main() {
	once := flag.Bool("once", false, "process a single batch and exit")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	fetcher := crawl.NewFetcher(cfg.FetchTimeout, cfg.UserAgent, cfg.AllowedDomains, cfg.BlockedDomains)

	var classifier crawl.Classifier
	if cfg.ClassifierKey != "" {
		classifier = crawl.NewHTTPClassifier(cfg.ClassifierEndpoint, cfg.ClassifierKey, cfg.ClassifierModel)
	}

	orch := crawl.NewOrchestrator(db, db, fetcher, classifier, cfg, slog.Default())

	if seeds := flag.Args(); len(seeds) > 0 {
		if err := orch.Seed(ctx, seeds); err != nil {
			slog.Error("failed to seed frontier", "err", err)
			os.Exit(1)
		}
		slog.Info("seeded frontier", "count", len(seeds))
	}

	if *once {
		n, err := orch.RunOnce(ctx)
		if err != nil {
			slog.Error("batch failed", "err", err)
			os.Exit(1)
		}
		slog.Info("batch complete", "indexed", n)
		return
	}

	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("crawler stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("crawler shut down")
}
