package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"text2img/internal/config"
	"text2img/internal/embedding/clip"
	"text2img/internal/importer"
	"text2img/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var dataset string
	flag.StringVar(&dataset, "dataset", "", "Path to the JSONL dataset (overrides importer.dataset_path)")
	flag.Parse()

	cfg, path, err := config.LoadDefault()
	if err != nil {
		log.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}
	if dataset == "" {
		dataset = cfg.Importer.DatasetPath
	}
	if dataset == "" {
		log.Error("no dataset given: set importer.dataset_path or pass -dataset")
		os.Exit(1)
	}

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

	job := importer.New(importer.Options{
		Embedder:           embedder,
		Store:              store,
		FetchRatePerSec:    cfg.Importer.FetchRatePerSec,
		VectorNames:        cfg.VectorNames,
		CaptionPayloadName: cfg.Qdrant.CaptionPayloadName,
		VectorSize:         cfg.Model.VectorSize,
		Logger:             log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Warn("recreating collection, existing contents will be lost",
		"collection", cfg.Qdrant.CollectionName)
	sum, err := job.Run(ctx, dataset)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("done", "total", sum.Total, "imported", sum.Imported, "failed", sum.Failed)
	if sum.Imported == 0 && sum.Total > 0 {
		os.Exit(1)
	}
}
