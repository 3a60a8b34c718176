package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"text2img/internal/config"
	"text2img/internal/embedding/clip"
	"text2img/internal/search"
	"text2img/internal/server"
	"text2img/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, path, err := config.LoadDefault()
	if err != nil {
		log.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}
	log.Info("config loaded", "path", path, "collection", cfg.Qdrant.CollectionName)

	embedder, err := clip.NewClient(clip.Config{
		BaseURL:   cfg.Model.URL,
		Model:     cfg.Model.Name,
		Dimension: cfg.Model.VectorSize,
		Timeout:   time.Duration(cfg.Model.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Error("failed to init embedder", "error", err)
		os.Exit(1)
	}
	store := qdrant.NewStore(qdrant.Config{
		URL:        cfg.Qdrant.URL(),
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.CollectionName,
		Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
	})

	searcher := search.NewSearcher(embedder, store, cfg.VectorNames, cfg.Qdrant.CaptionPayloadName, log)
	handler := server.NewHandler(searcher, int64(cfg.Server.MaxInflight), cfg.Server.RequestTimeout(), log)
	router := server.NewRouter(handler, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, router, cfg.Server.Port, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
