// Package qdrant is a minimal REST client to Qdrant supporting
// collections with named vector spaces.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"text2img/internal/vectorstore"
)

// Store is a vectorstore.Store backed by a remote Qdrant instance.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// Config configures the Qdrant client.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStore creates a Qdrant-backed store.
func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Recreate drops the collection if present and creates it anew with
// the given named vector spaces. Destructive: prior contents are lost.
func (s *Store) Recreate(ctx context.Context, spaces map[string]vectorstore.SpaceParams) error {
	if len(spaces) == 0 {
		return fmt.Errorf("qdrant: no vector spaces given")
	}
	// Delete first; a 404 for a missing collection is fine.
	if err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil); err != nil {
		var nf *notFoundError
		if !errors.As(err, &nf) {
			return err
		}
	}
	vectors := make(map[string]any, len(spaces))
	for name, p := range spaces {
		vectors[name] = map[string]any{
			"size":     p.Size,
			"distance": p.Distance,
		}
	}
	body := map[string]any{"vectors": vectors}
	return s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil)
}

// Upsert inserts or replaces the given points. Qdrant applies each
// point atomically, so a record never ends up with a partial vector
// set.
func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	reqPoints := make([]map[string]any, len(points))
	for i, p := range points {
		reqPoints[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vectors,
			"payload": p.Payload,
		}
	}
	body := map[string]any{"points": reqPoints}
	return s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

// Search runs a nearest-neighbor query against one named vector space.
func (s *Store) Search(ctx context.Context, space string, vector []float32, limit int) ([]vectorstore.Hit, error) {
	body := map[string]any{
		"vector": map[string]any{
			"name":   space,
			"vector": vector,
		},
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      uint64         `json:"id"`
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, err
	}
	hits := make([]vectorstore.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, vectorstore.Hit{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

func (s *Store) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

type notFoundError struct{ status string }

func (e *notFoundError) Error() string { return "qdrant: not found: " + e.status }

func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return &notFoundError{status: resp.Status}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
