package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text2img/internal/vectorstore"
)

func newTestStore(t *testing.T, handler http.Handler) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStore(Config{URL: srv.URL, Collection: "images"})
}

func TestRecreateDeletesThenCreates(t *testing.T) {
	var calls []string
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			var body struct {
				Vectors map[string]struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Len(t, body.Vectors, 2)
			assert.Equal(t, 512, body.Vectors["image"].Size)
			assert.Equal(t, "Cosine", body.Vectors["text"].Distance)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": true, "status": "ok"})
	}))

	spaces := map[string]vectorstore.SpaceParams{
		"image": {Size: 512, Distance: vectorstore.CosineDistance},
		"text":  {Size: 512, Distance: vectorstore.CosineDistance},
	}
	require.NoError(t, s.Recreate(context.Background(), spaces))
	assert.Equal(t, []string{
		"DELETE /collections/images",
		"PUT /collections/images",
	}, calls)
}

func TestRecreateToleratesMissingCollection(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": true})
	}))
	spaces := map[string]vectorstore.SpaceParams{
		"image": {Size: 4, Distance: vectorstore.CosineDistance},
	}
	assert.NoError(t, s.Recreate(context.Background(), spaces))
}

func TestUpsertSendsNamedVectorsAndPayload(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/images/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		var body struct {
			Points []struct {
				ID      uint64               `json:"id"`
				Vector  map[string][]float32 `json:"vector"`
				Payload map[string]any       `json:"payload"`
			} `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Points, 1)
		p := body.Points[0]
		assert.Equal(t, uint64(7), p.ID)
		assert.Equal(t, []float32{1, 0}, p.Vector["image"])
		assert.Equal(t, []float32{0, 1}, p.Vector["text"])
		assert.Equal(t, "http://example.com/7.jpg", p.Payload["img_url"])
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "completed"}})
	}))

	err := s.Upsert(context.Background(), []vectorstore.Point{{
		ID: 7,
		Vectors: map[string][]float32{
			"image": {1, 0},
			"text":  {0, 1},
		},
		Payload: map[string]any{
			"img_url":          "http://example.com/7.jpg",
			"possible_answers": []string{"a cat"},
		},
	}})
	assert.NoError(t, err)
}

func TestSearchNamedVector(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/images/points/search", r.URL.Path)
		var body struct {
			Vector struct {
				Name   string    `json:"name"`
				Vector []float32 `json:"vector"`
			} `json:"vector"`
			Limit       int  `json:"limit"`
			WithPayload bool `json:"with_payload"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text", body.Vector.Name)
		assert.Equal(t, 2, body.Limit)
		assert.True(t, body.WithPayload)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": 3, "score": 0.98, "payload": map[string]any{"img_url": "u3"}},
				{"id": 1, "score": 0.72, "payload": map[string]any{"img_url": "u1"}},
			},
		})
	}))

	hits, err := s.Search(context.Background(), "text", []float32{0.5, 0.5}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint64(3), hits[0].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "u3", hits[0].Payload["img_url"])
}

func TestSearchUnknownCollectionFails(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	_, err := s.Search(context.Background(), "text", []float32{1}, 1)
	assert.Error(t, err)
}
