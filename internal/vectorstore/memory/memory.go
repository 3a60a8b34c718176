// Package memory implements a brute-force in-memory vector store with
// named vector spaces, used by tests and local development.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"text2img/internal/vectorstore"
)

// Store holds points in memory and searches them by exact cosine
// similarity.
type Store struct {
	mu     sync.RWMutex
	spaces map[string]vectorstore.SpaceParams
	points map[uint64]vectorstore.Point
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Recreate resets the store to an empty collection with the given
// named vector spaces.
func (s *Store) Recreate(ctx context.Context, spaces map[string]vectorstore.SpaceParams) error {
	if len(spaces) == 0 {
		return fmt.Errorf("memory: no vector spaces given")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces = make(map[string]vectorstore.SpaceParams, len(spaces))
	for name, p := range spaces {
		s.spaces[name] = p
	}
	s.points = make(map[uint64]vectorstore.Point)
	return nil
}

// Upsert inserts or replaces points by id. Every point must carry one
// vector per configured space, each of the declared size.
func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spaces == nil {
		return fmt.Errorf("memory: collection not created")
	}
	for _, p := range points {
		if len(p.Vectors) != len(s.spaces) {
			return fmt.Errorf("memory: point %d has %d vectors, want %d", p.ID, len(p.Vectors), len(s.spaces))
		}
		for name, v := range p.Vectors {
			params, ok := s.spaces[name]
			if !ok {
				return fmt.Errorf("memory: unknown vector space %q", name)
			}
			if len(v) != params.Size {
				return fmt.Errorf("memory: point %d space %q has dimension %d, want %d", p.ID, name, len(v), params.Size)
			}
		}
	}
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

// Search returns up to limit hits ordered by descending cosine
// similarity in the named space.
func (s *Store) Search(ctx context.Context, space string, vector []float32, limit int) ([]vectorstore.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.spaces == nil {
		return nil, fmt.Errorf("memory: collection not created")
	}
	if _, ok := s.spaces[space]; !ok {
		return nil, fmt.Errorf("memory: unknown vector space %q", space)
	}
	hits := make([]vectorstore.Hit, 0, len(s.points))
	for _, p := range s.points {
		hits = append(hits, vectorstore.Hit{
			ID:      p.ID,
			Score:   cosine(vector, p.Vectors[space]),
			Payload: p.Payload,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len returns the number of stored points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
