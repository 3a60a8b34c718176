// Package clip implements the Embedder interface against a remote
// CLIP-style inference service that exposes text and image embedding
// endpoints.
package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client is an HTTP client to a multimodal embedding service.
type Client struct {
	baseURL    string
	model      string
	dimension  int
	client     *http.Client
	maxRetries int
}

// Config configures the embedding client.
type Config struct {
	BaseURL    string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new embedding client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("clip: base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("clip: model name is required")
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 512
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

type textRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type textResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type imageRequest struct {
	Model string `json:"model"`
	Image string `json:"image"` // base64-encoded bytes
}

type imageResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedTexts returns one vector per input string.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("clip: no texts given")
	}
	var out textResponse
	if err := c.post(ctx, "/embed/text", textRequest{Model: c.model, Texts: texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("clip: got %d embeddings for %d texts", len(out.Embeddings), len(texts))
	}
	for _, v := range out.Embeddings {
		if len(v) != c.dimension {
			return nil, fmt.Errorf("clip: embedding dimension %d, want %d", len(v), c.dimension)
		}
	}
	return out.Embeddings, nil
}

// EmbedImage returns a single vector for raw encoded image bytes.
func (c *Client) EmbedImage(ctx context.Context, img []byte) ([]float32, error) {
	if len(img) == 0 {
		return nil, errors.New("clip: empty image")
	}
	req := imageRequest{Model: c.model, Image: base64.StdEncoding.EncodeToString(img)}
	var out imageResponse
	if err := c.post(ctx, "/embed/image", req, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) != c.dimension {
		return nil, fmt.Errorf("clip: embedding dimension %d, want %d", len(out.Embedding), c.dimension)
	}
	return out.Embedding, nil
}

// post sends the request with bounded retry on 429 and 5xx responses.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := c.baseURL + path
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					select {
					case <-time.After(time.Duration(secs) * time.Second):
					case <-ctx.Done():
						_ = resp.Body.Close()
						return ctx.Err()
					}
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("clip: %s failed: %s", path, resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return fmt.Errorf("clip: %s failed: %s", path, resp.Status)
		}
		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return json.Unmarshal(payload, out)
	}
	return lastErr
}

func retryDelay(attempt int) time.Duration {
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
