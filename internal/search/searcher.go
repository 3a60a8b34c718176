// Package search implements the online query path: embed a free-text
// query and retrieve the nearest stored images from one named vector
// space.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"text2img/internal/config"
	"text2img/internal/domain"
	"text2img/internal/embedding"
	"text2img/internal/vectorstore"
)

// DefaultTopK is used when a query does not specify a limit.
const DefaultTopK = 10

// Searcher resolves text queries against the vector index. One shared
// instance serves all concurrent requests; it is read-only after
// construction.
type Searcher struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	names    config.VectorNames
	caption  string
	log      *slog.Logger
}

// NewSearcher creates a Searcher over the given embedder and store.
// captionPayloadName is the payload field holding the caption list.
func NewSearcher(embedder embedding.Embedder, store vectorstore.Store, names config.VectorNames, captionPayloadName string, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	return &Searcher{
		embedder: embedder,
		store:    store,
		names:    names,
		caption:  captionPayloadName,
		log:      log,
	}
}

// Query embeds text and returns up to topK hits from the named vector
// space, ordered by descending similarity. An unknown vectorName fails
// with domain.ErrUnknownVectorName before any backend call. topK <= 0
// falls back to DefaultTopK.
func (s *Searcher) Query(ctx context.Context, text, vectorName string, topK int) ([]domain.SearchHit, error) {
	if !s.names.Contains(vectorName) {
		return nil, fmt.Errorf("%w: %q must be either %q or %q",
			domain.ErrUnknownVectorName, vectorName, s.names.Text, s.names.Image)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	vecs, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.store.Search(ctx, vectorName, vecs[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", vectorName, err)
	}
	out := make([]domain.SearchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.SearchHit{
			ImageURL: payloadString(h.Payload, "img_url"),
			Captions: payloadStrings(h.Payload, s.caption),
			Score:    h.Score,
		})
	}
	s.log.Debug("query served", "vector", vectorName, "top_k", topK, "results", len(out))
	return out, nil
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func payloadStrings(payload map[string]any, key string) []string {
	switch v := payload[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
