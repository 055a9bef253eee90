// Package index deduplicates extracted products, embeds their descriptions
// and upserts them into the vector index.
package index

import (
	"context"

	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
	"github.com/stylistiq/fashionbot/internal/publish"
)

// Indexer is the only write path into the vector index.
type Indexer struct {
	index     pipeline.VectorIndex
	embedder  pipeline.Embedder
	publisher publish.Publisher
	logger    *zap.Logger
}

// New builds an Indexer. publisher may be nil when event delivery is not
// configured.
func New(index pipeline.VectorIndex, embedder pipeline.Embedder, publisher publish.Publisher, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = publish.Noop{}
	}
	return &Indexer{
		index:     index,
		embedder:  embedder,
		publisher: publisher,
		logger:    logger,
	}
}

// Process runs one extracted record through dedup, embedding and upsert.
// Every exit is an explicit Outcome; nothing here is session-fatal.
func (x *Indexer) Process(ctx context.Context, rec pipeline.ProductRecord) pipeline.Outcome {
	if rec.ID == "" {
		rec.ID = pipeline.ProductID(rec.SourceURL)
	}
	logger := x.logger.With(zap.String("id", rec.ID), zap.String("url", rec.SourceURL))

	// Dedup state is always rebuilt by asking the index directly, so a
	// process restart cannot cause duplicate embedding work.
	existing, err := x.index.Get(ctx, rec.ID)
	if err != nil {
		logger.Warn("dedup lookup failed, proceeding to upsert", zap.Error(err))
	}
	if existing != nil {
		logger.Debug("product already indexed, skipping")
		return x.done(pipeline.Skipped(rec.SourceURL, pipeline.SkipAlreadyIndexed))
	}

	if rec.Description == "" || rec.Description == pipeline.NotFound {
		logger.Warn("product has no usable description, skipping")
		return x.done(pipeline.Skipped(rec.SourceURL, pipeline.SkipNoDescription))
	}

	embedding, err := x.embedder.Embed(ctx, rec.Description)
	if err != nil || len(embedding) == 0 {
		logger.Warn("embedding unavailable, skipping", zap.Error(err))
		return x.done(pipeline.Skipped(rec.SourceURL, pipeline.SkipEmbeddingFailed))
	}
	rec.Embedding = embedding

	if err := x.index.Upsert(ctx, rec); err != nil {
		logger.Error("index upsert failed", zap.Error(err))
		return x.done(pipeline.Failed(rec.SourceURL, "upsert_failed"))
	}

	if err := x.publisher.Publish(ctx, "product.indexed", map[string]any{
		"id":    rec.ID,
		"url":   rec.SourceURL,
		"name":  rec.Name,
		"price": rec.Price,
	}); err != nil {
		logger.Warn("event publish failed", zap.Error(err))
	}

	logger.Info("product indexed", zap.String("name", rec.Name), zap.String("price", rec.Price))
	return x.done(pipeline.Outcome{Kind: pipeline.OutcomeIndexed, URL: rec.SourceURL})
}

func (x *Indexer) done(o pipeline.Outcome) pipeline.Outcome {
	metrics.ObserveProduct(string(o.Kind), o.Reason)
	return o
}
