package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
	"github.com/stylistiq/fashionbot/internal/vector/memory"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

type fakeGenerator struct {
	answer     string
	err        error
	lastSystem string
	lastPrompt string
	history    []pipeline.Message
}

func (f *fakeGenerator) Complete(_ context.Context, system, question string, history []pipeline.Message) (string, error) {
	f.lastSystem = system
	f.lastPrompt = question
	f.history = history
	return f.answer, f.err
}

func seedIndex(t *testing.T) *memory.Index {
	t.Helper()
	idx := memory.New()
	require.NoError(t, idx.Upsert(context.Background(), pipeline.ProductRecord{
		ID:          "kurta-01",
		Name:        "Embroidered Kurta",
		Price:       "PKR 2500",
		Description: "Lawn kurta with mirror work.",
		SourceURL:   "https://shop.example/products/kurta-01",
		Embedding:   []float32{1, 0},
	}))
	require.NoError(t, idx.Upsert(context.Background(), pipeline.ProductRecord{
		ID:          "dupatta-02",
		Name:        "Silk Dupatta",
		Price:       "PKR 1200",
		Description: "Hand-dyed silk dupatta.",
		SourceURL:   "https://shop.example/products/dupatta-02",
		Embedding:   []float32{0, 1},
	}))
	return idx
}

func newService(t *testing.T, idx pipeline.VectorIndex, emb pipeline.Embedder, gen pipeline.Generator, status *pipeline.StatusHolder) *Service {
	t.Helper()
	metrics.Init()
	return New(Config{TopK: 5}, idx, emb, gen, status, zap.NewNop())
}

func TestAnswerGroundsPromptInRetrievedProducts(t *testing.T) {
	idx := seedIndex(t)
	gen := &fakeGenerator{answer: "The Embroidered Kurta from shop.example costs PKR 2500."}
	svc := newService(t, idx, fakeEmbedder{vec: []float32{1, 0}}, gen, nil)

	history := []pipeline.Message{{Role: "user", Content: "hi"}, {Role: "model", Content: "hello"}}
	answer := svc.Answer(context.Background(), "any embroidered kurtas?", history, 2)

	require.Equal(t, gen.answer, answer)
	require.Contains(t, gen.lastPrompt, "Embroidered Kurta")
	require.Contains(t, gen.lastPrompt, "PKR 2500")
	require.Contains(t, gen.lastPrompt, "https://shop.example/products/kurta-01")
	require.Contains(t, gen.lastPrompt, "Question: any embroidered kurtas?")
	require.Contains(t, gen.lastSystem, "name the brand")
	require.Equal(t, history, gen.history)

	// Nearest product leads the context block.
	require.Less(t,
		strings.Index(gen.lastPrompt, "Embroidered Kurta"),
		strings.Index(gen.lastPrompt, "Silk Dupatta"))
}

func TestAnswerGuardsEmptyIndex(t *testing.T) {
	idx := memory.New()
	gen := &fakeGenerator{answer: "unused"}

	status := pipeline.NewStatusHolder()
	status.Set(pipeline.StatusScraping)
	svc := newService(t, idx, fakeEmbedder{vec: []float32{1}}, gen, status)
	require.Equal(t, NotReady, svc.Answer(context.Background(), "kurtas?", nil, 0))

	status.Set(pipeline.StatusIdle)
	require.Equal(t, Empty, svc.Answer(context.Background(), "kurtas?", nil, 0))

	// The generator is never consulted without data.
	require.Empty(t, gen.lastPrompt)
}

func TestAnswerReturnsApologyOnEmbeddingFailure(t *testing.T) {
	idx := seedIndex(t)
	gen := &fakeGenerator{answer: "unused"}
	svc := newService(t, idx, fakeEmbedder{err: errors.New("quota exceeded")}, gen, nil)

	require.Equal(t, Apology, svc.Answer(context.Background(), "kurtas?", nil, 0))
	require.Empty(t, gen.lastPrompt)
}

func TestAnswerReturnsApologyOnGenerationFailure(t *testing.T) {
	idx := seedIndex(t)
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	svc := newService(t, idx, fakeEmbedder{vec: []float32{1, 0}}, gen, nil)

	require.Equal(t, Apology, svc.Answer(context.Background(), "kurtas?", nil, 0))
}

func TestAnswerRejectsBlankQuestion(t *testing.T) {
	idx := seedIndex(t)
	gen := &fakeGenerator{answer: "unused"}
	svc := newService(t, idx, fakeEmbedder{vec: []float32{1, 0}}, gen, nil)

	require.Equal(t, Apology, svc.Answer(context.Background(), "   ", nil, 0))
	require.Empty(t, gen.lastPrompt)
}
