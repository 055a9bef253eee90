// Package memory implements the vector index in process memory with
// brute-force cosine similarity. Used for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// Index is an in-memory pipeline.VectorIndex.
type Index struct {
	mu      sync.RWMutex
	records map[string]pipeline.ProductRecord
}

var _ pipeline.VectorIndex = (*Index)(nil)

// New returns an empty index.
func New() *Index {
	return &Index{records: make(map[string]pipeline.ProductRecord)}
}

// Get returns the record stored under id, or nil when absent.
func (i *Index) Get(_ context.Context, id string) (*pipeline.ProductRecord, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	rec, ok := i.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Upsert stores the record under its id. Atomic per id; never deletes.
func (i *Index) Upsert(_ context.Context, rec pipeline.ProductRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.records[rec.ID] = rec
	return nil
}

// Query returns up to k records ordered by cosine similarity to embedding.
func (i *Index) Query(_ context.Context, embedding []float32, k int) ([]pipeline.ProductRecord, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if k <= 0 {
		k = 5
	}

	type scored struct {
		rec   pipeline.ProductRecord
		score float32
	}
	results := make([]scored, 0, len(i.records))
	for _, rec := range i.records {
		results = append(results, scored{rec: rec, score: dot(rec.Embedding, embedding)})
	}
	sort.Slice(results, func(a, b int) bool { return results[a].score > results[b].score })

	if k > len(results) {
		k = len(results)
	}
	out := make([]pipeline.ProductRecord, 0, k)
	for _, r := range results[:k] {
		out = append(out, r.rec)
	}
	return out, nil
}

// Count returns the number of stored records.
func (i *Index) Count(_ context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records), nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for idx := 0; idx < n; idx++ {
		sum += a[idx] * b[idx]
	}
	return sum
}
