package vectorstore

import "context"

// SpaceParams describes one named vector space of a collection.
type SpaceParams struct {
	Size     int
	Distance string
}

// Point is a record to be stored: an id, one vector per named space,
// and arbitrary payload metadata.
type Point struct {
	ID      uint64
	Vectors map[string][]float32
	Payload map[string]any
}

// Hit is a single search result with its stored payload.
type Hit struct {
	ID      uint64
	Score   float32
	Payload map[string]any
}

// Store persists multi-vector points and supports nearest-neighbor
// search against one named vector space.
type Store interface {
	// Recreate destructively (re)creates the collection with the given
	// named vector spaces. Existing contents are lost.
	Recreate(ctx context.Context, spaces map[string]SpaceParams) error
	// Upsert inserts or replaces points by id. Each point carries all
	// of its named vectors in one call, so a record is never stored
	// with only one space populated.
	Upsert(ctx context.Context, points []Point) error
	// Search returns up to limit hits ordered by descending similarity
	// to the query vector in the named space.
	Search(ctx context.Context, space string, vector []float32, limit int) ([]Hit, error)
}

// CosineDistance is the similarity metric used by all collections.
const CosineDistance = "Cosine"
