package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// fakeQdrant emulates the subset of the REST API the client uses.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]bool
	points      map[string]map[string]string
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{
		collections: map[string]bool{},
		points:      map[string]map[string]string{},
	}
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := r.PathValue("name")
		if f.collections[name] {
			w.WriteHeader(http.StatusConflict)
			return
		}
		f.collections[name] = true
		writeResult(w, true)
	})
	mux.HandleFunc("PUT /collections/{name}/points", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Points []struct {
				ID      string            `json:"id"`
				Payload map[string]string `json:"payload"`
			} `json:"points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range req.Points {
			f.points[p.ID] = p.Payload
		}
		writeResult(w, map[string]string{"status": "completed"})
	})
	mux.HandleFunc("POST /collections/{name}/points", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		var result []map[string]any
		for _, id := range req.IDs {
			if payload, ok := f.points[id]; ok {
				result = append(result, map[string]any{"id": id, "payload": payload})
			}
		}
		writeResult(w, result)
	})
	mux.HandleFunc("POST /collections/{name}/points/count", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeResult(w, map[string]int{"count": len(f.points)})
	})
	return mux
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

func newTestIndex(t *testing.T) (*Index, *fakeQdrant) {
	t.Helper()
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	idx, err := New(context.Background(), Config{
		URL:        srv.URL,
		Collection: "clothing_brands",
		Dimension:  4,
	})
	require.NoError(t, err)
	return idx, fake
}

func TestNewCreatesCollectionOnce(t *testing.T) {
	idx, fake := newTestIndex(t)
	require.True(t, fake.collections["clothing_brands"])

	// A second client finds the collection already there; the 409 is
	// tolerated, not surfaced.
	again, err := New(context.Background(), idx.cfg)
	require.NoError(t, err)
	require.NotNil(t, again)
}

func TestUpsertGetRoundTrip(t *testing.T) {
	idx, _ := newTestIndex(t)

	rec := pipeline.ProductRecord{
		ID:          "kurta-01",
		Name:        "Embroidered Kurta",
		Price:       "PKR 2500",
		Description: "Lawn kurta.",
		SourceURL:   "https://shop.example/products/kurta-01",
		Embedding:   []float32{0.1, 0.2, 0.3, 0.4},
	}
	require.NoError(t, idx.Upsert(context.Background(), rec))

	got, err := idx.Get(context.Background(), "kurta-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "kurta-01", got.ID)
	require.Equal(t, "Embroidered Kurta", got.Name)
	require.Equal(t, "https://shop.example/products/kurta-01", got.SourceURL)

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestGetReturnsNilForUnknownID(t *testing.T) {
	idx, _ := newTestIndex(t)

	got, err := idx.Get(context.Background(), "never-stored")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPointIDIsDeterministicUUID(t *testing.T) {
	require.Equal(t, pointID("kurta-01"), pointID("kurta-01"))
	require.NotEqual(t, pointID("kurta-01"), pointID("kurta-02"))
	require.Len(t, pointID("kurta-01"), 36)
}
