// Package retrieval serves grounded answers over the product index.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// Apology is returned verbatim whenever answering fails. Callers never see
// the underlying error.
const Apology = "Sorry, I couldn't generate a response at the moment."

// NotReady is returned while the index is still empty and a crawl session
// is filling it.
const NotReady = "I don't have any product information yet. A crawl is in progress, please ask again in a little while."

// Empty is returned when the index is empty and no session is running.
const Empty = "I don't have any product information yet. Start a crawl session to populate the catalog."

const systemPrompt = `You are a helpful shopping assistant for South Asian fashion.
Answer using only the product context below. Always name the brand a product
comes from, quote its price when known, and include its product URL. If the
context does not contain a relevant product, say so instead of guessing.`

// Config controls the retrieval service.
type Config struct {
	// TopK is the default number of products retrieved per question.
	TopK int
}

// Service is the read path: embed the question, retrieve the nearest
// products, and generate an answer grounded in their metadata. It only
// reads the index and is safe to use concurrently with a crawl session.
type Service struct {
	cfg       Config
	index     pipeline.VectorIndex
	embedder  pipeline.Embedder
	generator pipeline.Generator
	status    *pipeline.StatusHolder
	logger    *zap.Logger
}

// New builds a Service.
func New(cfg Config, index pipeline.VectorIndex, embedder pipeline.Embedder, generator pipeline.Generator, status *pipeline.StatusHolder, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		index:     index,
		embedder:  embedder,
		generator: generator,
		status:    status,
		logger:    logger,
	}
}

// Answer responds to a question using the indexed products. Failures are
// absorbed into the fixed apology string; the error is logged, never
// surfaced.
func (s *Service) Answer(ctx context.Context, question string, history []pipeline.Message, k int) string {
	if strings.TrimSpace(question) == "" {
		metrics.ObserveQuery("empty_question")
		return Apology
	}
	if k <= 0 {
		k = s.cfg.TopK
	}

	count, err := s.index.Count(ctx)
	if err != nil {
		s.logger.Error("index count failed", zap.Error(err))
		metrics.ObserveQuery("index_error")
		return Apology
	}
	if count == 0 {
		metrics.ObserveQuery("not_ready")
		if s.status != nil && s.status.Active() {
			return NotReady
		}
		return Empty
	}

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil || len(embedding) == 0 {
		s.logger.Error("question embedding failed", zap.Error(err))
		metrics.ObserveQuery("embed_error")
		return Apology
	}

	records, err := s.index.Query(ctx, embedding, k)
	if err != nil {
		s.logger.Error("index query failed", zap.Error(err))
		metrics.ObserveQuery("index_error")
		return Apology
	}

	prompt := buildPrompt(question, records)
	answer, err := s.generator.Complete(ctx, systemPrompt, prompt, history)
	if err != nil || strings.TrimSpace(answer) == "" {
		s.logger.Error("answer generation failed", zap.Error(err))
		metrics.ObserveQuery("generate_error")
		return Apology
	}

	metrics.ObserveQuery("ok")
	return answer
}

// buildPrompt renders the retrieved products into a context block followed
// by the user's question.
func buildPrompt(question string, records []pipeline.ProductRecord) string {
	var b strings.Builder
	b.WriteString("Product context:\n")
	if len(records) == 0 {
		b.WriteString("(no matching products)\n")
	}
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec.Name)
		if rec.Price != "" && rec.Price != pipeline.NotFound {
			fmt.Fprintf(&b, "   Price: %s\n", rec.Price)
		}
		if rec.Description != "" && rec.Description != pipeline.NotFound {
			fmt.Fprintf(&b, "   Description: %s\n", rec.Description)
		}
		if rec.SourceURL != "" {
			fmt.Fprintf(&b, "   URL: %s\n", rec.SourceURL)
		}
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
