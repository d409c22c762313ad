package main

import (
	"context"
	"log/slog"
	"os"

	"natro/internal/config"
	"natro/internal/rank"
	"natro/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := config.Load()
	ctx := context.Background()

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	pages, err := db.ListPageURLs(ctx)
	if err != nil {
		slog.Error("failed to load pages", "err", err)
		os.Exit(1)
	}
	edges, err := db.ListLinkEdges(ctx)
	if err != nil {
		slog.Error("failed to load link edges", "err", err)
		os.Exit(1)
	}

	incoming := make(map[string][]string, len(pages))
	for _, e := range edges {
		incoming[e.Target] = append(incoming[e.Target], e.Source)
	}

	scores := rank.ComputePageRank(pages, incoming)
	if err := db.UpdatePageRanks(ctx, scores); err != nil {
		slog.Error("failed to write scores", "err", err)
		os.Exit(1)
	}
	slog.Info("page rank updated", "pages", len(pages), "edges", len(edges))
}
