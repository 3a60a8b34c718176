package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"text2img/internal/domain"
	"text2img/internal/metrics"
	"text2img/internal/search"
)

// Querier is the handler-facing subset of the Searcher.
type Querier interface {
	Query(ctx context.Context, text, vectorName string, topK int) ([]domain.SearchHit, error)
}

// Handler serves the HTTP endpoints over one shared Searcher instance.
// Embed+search work runs under a weighted semaphore so slow inference
// cannot occupy every connection; the request context bounds both the
// wait and the work.
type Handler struct {
	searcher Querier
	sem      *semaphore.Weighted
	timeout  time.Duration
	client   *http.Client
	log      *slog.Logger
}

// NewHandler creates a Handler. maxInflight bounds concurrent
// embed+search calls; timeout is the per-request budget.
func NewHandler(searcher Querier, maxInflight int64, timeout time.Duration, log *slog.Logger) *Handler {
	if maxInflight <= 0 {
		maxInflight = 8
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		searcher: searcher,
		sem:      semaphore.NewWeighted(maxInflight),
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Health godoc
//
//	@Summary		Liveness check
//	@Description	Returns "OK" if the service is up. No dependencies are probed.
//	@Produce		plain
//	@Success		200	{string}	string	"OK"
//	@Router			/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Query godoc
//
//	@Summary		Text-to-image search
//	@Description	Returns the metadata of the top-k images most similar to the text query.
//	@Accept			json
//	@Produce		json
//	@Param			request	body		QueryRequest	true	"query"
//	@Success		200		{array}		QueryReply
//	@Failure		400		{object}	ErrorReply
//	@Failure		500		{object}	ErrorReply
//	@Router			/query [post]
func (h *Handler) Query(c *gin.Context) {
	metrics.QueryRequests.Inc()
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.QueryErrors.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, ErrorReply{Message: "cannot parse request: " + err.Error()})
		return
	}
	topK := search.DefaultTopK
	if req.K != nil {
		topK = *req.K
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.sem.Acquire(ctx, 1); err != nil {
		metrics.QueryErrors.WithLabelValues("overloaded").Inc()
		c.JSON(http.StatusServiceUnavailable, ErrorReply{Message: "server is busy"})
		return
	}
	metrics.InflightQueries.Inc()
	start := time.Now()
	hits, err := h.searcher.Query(ctx, req.Text, req.VectorToSearch, topK)
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	metrics.InflightQueries.Dec()
	h.sem.Release(1)

	if err != nil {
		if errors.Is(err, domain.ErrUnknownVectorName) {
			metrics.QueryErrors.WithLabelValues("bad_vector").Inc()
			c.JSON(http.StatusBadRequest, ErrorReply{Message: err.Error()})
			return
		}
		metrics.QueryErrors.WithLabelValues("internal").Inc()
		h.log.Error("query failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorReply{Message: "query failed"})
		return
	}

	replies := make([]QueryReply, 0, len(hits))
	for _, hit := range hits {
		replies = append(replies, QueryReply{Captions: hit.Captions, ImgURL: hit.ImageURL})
	}
	c.JSON(http.StatusOK, replies)
}

// GetImage godoc
//
//	@Summary		Retrieve an image by URL
//	@Description	Fetches the image and streams its bytes back to the caller.
//	@Produce		octet-stream
//	@Param			img_url	query		string	true	"image URL"
//	@Success		200		{file}		file
//	@Failure		400		{object}	ErrorReply
//	@Failure		502		{object}	ErrorReply
//	@Router			/get_image [get]
func (h *Handler) GetImage(c *gin.Context) {
	metrics.ImageRequests.Inc()
	imgURL := c.Query("img_url")
	if imgURL == "" {
		c.JSON(http.StatusBadRequest, ErrorReply{Message: "img_url query parameter is required"})
		return
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, imgURL, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorReply{Message: "invalid img_url"})
		return
	}
	resp, err := h.client.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorReply{Message: fmt.Sprintf("fetch image: %v", err)})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadGateway, ErrorReply{Message: "upstream returned " + resp.Status})
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// Stream straight through; no intermediate file.
	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, nil)
}
