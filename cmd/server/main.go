package main

import (
	"context"
	"log/slog"
	"os"

	"natro/internal/config"
	httppkg "natro/internal/http"
	"natro/internal/search"
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
	slog.Info("connected to database")

	popularity := store.NewRedisPopularity(cfg.RedisAddr, "natro:popular_searches")
	defer popularity.Close()

	suggester := search.NewSuggester(popularity, db)
	engine := search.NewEngine(db, suggester, slog.Default())

	server := httppkg.NewServer(engine, suggester, db, db, slog.Default())
	slog.Info("starting server", "addr", cfg.ListenAddr)
	if err := server.Start(cfg.ListenAddr); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
