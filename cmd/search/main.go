package main

import (
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"text2img/internal/config"
	"text2img/internal/embedding/clip"
	"text2img/internal/search"
	"text2img/internal/tui"
	"text2img/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	cfg, path, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("failed to load config %s: %v", path, err)
	}

	embedder, err := clip.NewClient(clip.Config{
		BaseURL:   cfg.Model.URL,
		Model:     cfg.Model.Name,
		Dimension: cfg.Model.VectorSize,
		Timeout:   time.Duration(cfg.Model.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to init embedder: %v", err)
	}
	store := qdrant.NewStore(qdrant.Config{
		URL:        cfg.Qdrant.URL(),
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.CollectionName,
		Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
	})
	searcher := search.NewSearcher(embedder, store, cfg.VectorNames, cfg.Qdrant.CaptionPayloadName, nil)

	m := tui.New(searcher, []string{cfg.VectorNames.Image, cfg.VectorNames.Text})
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
