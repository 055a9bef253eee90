package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
	"github.com/stylistiq/fashionbot/internal/retrieval"
	"github.com/stylistiq/fashionbot/internal/vector/memory"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type fixedGenerator struct{ answer string }

func (g fixedGenerator) Complete(_ context.Context, _, _ string, _ []pipeline.Message) (string, error) {
	return g.answer, nil
}

func newTestServer(t *testing.T) (*Server, *memory.Index, *pipeline.StatusHolder) {
	t.Helper()
	metrics.Init()

	idx := memory.New()
	require.NoError(t, idx.Upsert(context.Background(), pipeline.ProductRecord{
		ID:          "kurta-01",
		Name:        "Embroidered Kurta",
		Price:       "PKR 2500",
		Description: "Lawn kurta.",
		SourceURL:   "https://shop.example/products/kurta-01",
		Embedding:   []float32{1, 0},
	}))

	status := pipeline.NewStatusHolder()
	svc := retrieval.New(retrieval.Config{TopK: 3}, idx, fixedEmbedder{}, fixedGenerator{answer: "Try the Embroidered Kurta."}, status, zap.NewNop())
	return NewServer(svc, idx, status, zap.NewNop()), idx, status
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestChatReturnsAnswer(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := `{"question":"any kurtas?","history":[{"role":"user","content":"hi"}],"k":2}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Try the Embroidered Kurta.", resp.Answer)
}

func TestChatRejectsBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("{not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"history":[]}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "question required")
}

func TestPipelineStatusReportsIndexSize(t *testing.T) {
	srv, _, status := newTestServer(t)
	status.Set(pipeline.StatusScraping)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status          string `json:"status"`
		ProductsIndexed int    `json:"products_indexed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, string(pipeline.StatusScraping), resp.Status)
	require.Equal(t, 1, resp.ProductsIndexed)
}

func TestMetricsEndpointServesPrometheusText(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
