package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text2img/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubQuerier struct {
	hits    []domain.SearchHit
	err     error
	lastK   int
	lastVec string
}

func (s *stubQuerier) Query(ctx context.Context, text, vectorName string, topK int) ([]domain.SearchHit, error) {
	s.lastVec = vectorName
	s.lastK = topK
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func newTestRouter(q Querier) *gin.Engine {
	h := NewHandler(q, 2, 5*time.Second, nil)
	return NewRouter(h, nil)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubQuerier{})
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHealthIgnoresBackendState(t *testing.T) {
	router := newTestRouter(&stubQuerier{err: errors.New("index down")})
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQueryReturnsResults(t *testing.T) {
	q := &stubQuerier{hits: []domain.SearchHit{
		{ImageURL: "u1", Captions: []string{"a cat"}, Score: 0.9},
		{ImageURL: "u2", Captions: []string{"a dog"}, Score: 0.5},
	}}
	router := newTestRouter(q)

	w := doJSON(t, router, http.MethodPost, "/query", QueryRequest{
		Text: "cat", VectorToSearch: "image", K: intPtr(2),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var replies []QueryReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replies))
	require.Len(t, replies, 2)
	assert.Equal(t, "u1", replies[0].ImgURL)
	assert.Equal(t, []string{"a cat"}, replies[0].Captions)
	assert.Equal(t, 2, q.lastK)
	assert.Equal(t, "image", q.lastVec)
}

func TestQueryDefaultsKWhenOmitted(t *testing.T) {
	q := &stubQuerier{}
	router := newTestRouter(q)

	w := doJSON(t, router, http.MethodPost, "/query", QueryRequest{
		Text: "cat", VectorToSearch: "text",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, q.lastK)
}

func TestQueryUnknownVectorNameIsClientError(t *testing.T) {
	q := &stubQuerier{err: domain.ErrUnknownVectorName}
	router := newTestRouter(q)

	w := doJSON(t, router, http.MethodPost, "/query", QueryRequest{
		Text: "cat", VectorToSearch: "audio",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var reply ErrorReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.NotEmpty(t, reply.Message)
}

func TestQueryBackendFailureIsServerError(t *testing.T) {
	q := &stubQuerier{err: errors.New("qdrant unreachable")}
	router := newTestRouter(q)

	w := doJSON(t, router, http.MethodPost, "/query", QueryRequest{
		Text: "cat", VectorToSearch: "image",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestQueryMissingFieldsIsClientError(t *testing.T) {
	router := newTestRouter(&stubQuerier{})
	w := doJSON(t, router, http.MethodPost, "/query", map[string]any{"text": "cat"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRootRedirectsToDocs(t *testing.T) {
	router := newTestRouter(&stubQuerier{})
	w := doJSON(t, router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/docs/index.html", w.Header().Get("Location"))
}

func TestMetricsExposed(t *testing.T) {
	router := newTestRouter(&stubQuerier{})
	w := doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "text2img_query_requests_total")
}

func TestRequestIDHeaderSet(t *testing.T) {
	router := newTestRouter(&stubQuerier{})
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGetImageStreamsBytes(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	defer upstream.Close()

	router := newTestRouter(&stubQuerier{})
	w := doJSON(t, router, http.MethodGet, "/get_image?img_url="+upstream.URL+"/cat.jpg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestGetImageMissingURLIsClientError(t *testing.T) {
	router := newTestRouter(&stubQuerier{})
	w := doJSON(t, router, http.MethodGet, "/get_image", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetImageUpstreamFailureIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	router := newTestRouter(&stubQuerier{})
	w := doJSON(t, router, http.MethodGet, "/get_image?img_url="+upstream.URL+"/missing.jpg", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func intPtr(v int) *int { return &v }
