package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Embedder produces fixed-length vectors from images or texts using a
// pretrained multimodal model. Implementations must be safe for
// concurrent use; inference is read-only.
type Embedder interface {
	// EmbedTexts returns one vector per input string.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedImage returns a single vector for raw encoded image bytes.
	EmbedImage(ctx context.Context, img []byte) ([]float32, error)
	// Dimension returns the length of produced vectors.
	Dimension() int
}

// Average computes the element-wise mean of the given vectors. All
// vectors must share the same length. Used to collapse per-caption
// embeddings into one text vector per record.
func Average(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, errors.New("average of zero vectors")
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vectors))
	for j := range sum {
		out[j] = float32(sum[j] / n)
	}
	return out, nil
}
