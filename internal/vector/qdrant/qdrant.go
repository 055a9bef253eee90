// Package qdrant implements the vector index over Qdrant's REST API.
// It assumes cosine distance and creates the collection if missing.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// Config configures the Qdrant client.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// Index is a minimal REST client implementing pipeline.VectorIndex.
type Index struct {
	cfg    Config
	client *http.Client
}

var _ pipeline.VectorIndex = (*Index)(nil)

// New builds the client and ensures the collection exists.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	idx := &Index{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Index) ensureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     i.cfg.Dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 409 when the collection already exists.
	err := i.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", i.cfg.Collection), body, nil)
	if err != nil && !isConflict(err) {
		return fmt.Errorf("ensure collection: %w", err)
	}
	return nil
}

// Get retrieves a point by product id, nil when absent.
func (i *Index) Get(ctx context.Context, id string) (*pipeline.ProductRecord, error) {
	req := map[string]any{
		"ids":          []string{pointID(id)},
		"with_payload": true,
	}
	var resp struct {
		Result []point `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points", i.cfg.Collection)
	if err := i.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("get point %s: %w", id, err)
	}
	if len(resp.Result) == 0 {
		return nil, nil
	}
	rec := resp.Result[0].record()
	return &rec, nil
}

// Upsert writes a single point with wait=true so the record is visible to
// readers as soon as the call returns.
func (i *Index) Upsert(ctx context.Context, rec pipeline.ProductRecord) error {
	payload := rec.Metadata()
	payload["id"] = rec.ID
	body := map[string]any{
		"points": []map[string]any{{
			"id":      pointID(rec.ID),
			"vector":  rec.Embedding,
			"payload": payload,
		}},
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", i.cfg.Collection)
	if err := i.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("upsert point %s: %w", rec.ID, err)
	}
	return nil
}

// Query returns the k nearest points by cosine similarity.
func (i *Index) Query(ctx context.Context, embedding []float32, k int) ([]pipeline.ProductRecord, error) {
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       embedding,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []point `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", i.cfg.Collection)
	if err := i.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}
	records := make([]pipeline.ProductRecord, 0, len(resp.Result))
	for _, p := range resp.Result {
		records = append(records, p.record())
	}
	return records, nil
}

// Count returns the exact number of stored points.
func (i *Index) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", i.cfg.Collection)
	if err := i.do(ctx, http.MethodPost, path, map[string]any{"exact": true}, &resp); err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return resp.Result.Count, nil
}

// pointID maps a product id onto the UUID space Qdrant accepts as point
// ids. Deterministic, so the same product always lands on the same point.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

type point struct {
	ID      any               `json:"id"`
	Payload map[string]string `json:"payload"`
}

func (p point) record() pipeline.ProductRecord {
	return pipeline.ProductRecord{
		ID:          p.Payload["id"],
		Name:        p.Payload["name"],
		Price:       p.Payload["price"],
		Description: p.Payload["description"],
		ImageURL:    p.Payload["image"],
		SourceURL:   p.Payload["url"],
	}
}

type statusError struct {
	code   int
	status string
	url    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s: %s", e.url, e.status)
}

func isConflict(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusConflict
}

func (i *Index) do(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, i.cfg.URL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if i.cfg.APIKey != "" {
		req.Header.Set("api-key", i.cfg.APIKey)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, status: resp.Status, url: path}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
