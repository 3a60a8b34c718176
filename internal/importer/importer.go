// Package importer implements the offline batch job that populates
// the vector index from a JSONL dataset of (image URL, captions)
// records.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/time/rate"

	"text2img/internal/config"
	"text2img/internal/domain"
	"text2img/internal/embedding"
	"text2img/internal/vectorstore"
)

// maxImageBytes caps a single image download.
const maxImageBytes = 32 << 20

// Summary reports the outcome of an import run.
type Summary struct {
	Total    int
	Imported int
	Failed   int
}

// Importer populates a collection. It destructively recreates the
// collection before loading, so at most one invocation may run at a
// time.
type Importer struct {
	embedder   embedding.Embedder
	store      vectorstore.Store
	client     *http.Client
	limiter    *rate.Limiter
	names      config.VectorNames
	caption    string
	vectorSize int
	log        *slog.Logger
}

// Options configures an Importer.
type Options struct {
	Embedder           embedding.Embedder
	Store              vectorstore.Store
	HTTPClient         *http.Client
	FetchRatePerSec    float64
	VectorNames        config.VectorNames
	CaptionPayloadName string
	VectorSize         int
	Logger             *slog.Logger
}

// New creates an Importer.
func New(opts Options) *Importer {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Limit(opts.FetchRatePerSec)
	if opts.FetchRatePerSec <= 0 {
		limit = rate.Inf
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Importer{
		embedder:   opts.Embedder,
		store:      opts.Store,
		client:     client,
		limiter:    rate.NewLimiter(limit, 1),
		names:      opts.VectorNames,
		caption:    opts.CaptionPayloadName,
		vectorSize: opts.VectorSize,
		log:        log,
	}
}

// Run recreates the collection and imports every record of the JSONL
// dataset at path, sequentially and index-ordered. A record that fails
// to fetch, decode, or embed is logged, counted, and skipped; the run
// continues.
func (im *Importer) Run(ctx context.Context, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	spaces := map[string]vectorstore.SpaceParams{
		im.names.Image: {Size: im.vectorSize, Distance: vectorstore.CosineDistance},
		im.names.Text:  {Size: im.vectorSize, Distance: vectorstore.CosineDistance},
	}
	if err := im.store.Recreate(ctx, spaces); err != nil {
		return Summary{}, fmt.Errorf("recreate collection: %w", err)
	}

	var sum Summary
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 16<<20)
	for index := 0; scanner.Scan(); index++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Total++
		if err := im.importRecord(ctx, index, scanner.Bytes()); err != nil {
			sum.Failed++
			im.log.Warn("record skipped", "index", index, "error", err)
			continue
		}
		sum.Imported++
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("read dataset: %w", err)
	}
	im.log.Info("import finished", "total", sum.Total, "imported", sum.Imported, "failed", sum.Failed)
	return sum, nil
}

func (im *Importer) importRecord(ctx context.Context, index int, line []byte) error {
	var rec domain.DatasetRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return fmt.Errorf("parse record: %w", err)
	}
	if rec.ImageURL == "" {
		return fmt.Errorf("record has no image url")
	}
	if len(rec.Captions) == 0 {
		return domain.ErrNoCaptions
	}

	img, err := im.fetchImage(ctx, rec.ImageURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rec.ImageURL, err)
	}
	imgVec, err := im.embedder.EmbedImage(ctx, img)
	if err != nil {
		return fmt.Errorf("embed image: %w", err)
	}
	capVecs, err := im.embedder.EmbedTexts(ctx, rec.Captions)
	if err != nil {
		return fmt.Errorf("embed captions: %w", err)
	}
	txtVec, err := embedding.Average(capVecs)
	if err != nil {
		return fmt.Errorf("average captions: %w", err)
	}

	point := vectorstore.Point{
		ID: uint64(index),
		Vectors: map[string][]float32{
			im.names.Image: imgVec,
			im.names.Text:  txtVec,
		},
		Payload: map[string]any{
			im.caption: rec.Captions,
			"img_url":  rec.ImageURL,
		},
	}
	if err := im.store.Upsert(ctx, []vectorstore.Point{point}); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// fetchImage downloads the image under the rate limit and verifies the
// bytes decode as a known image format before handing them to the
// embedder.
func (im *Importer) fetchImage(ctx context.Context, url string) ([]byte, error) {
	if err := im.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, err
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}
