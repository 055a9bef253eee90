// Package gemini implements the embedding and generation collaborators on
// top of the Google Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// Embedder implements pipeline.Embedder via Models.EmbedContent.
type Embedder struct {
	client *genai.Client
	model  string
}

var _ pipeline.Embedder = (*Embedder)(nil)

// NewEmbedder creates an Embedder for the given model.
func NewEmbedder(client *genai.Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx, e.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: text}},
		}},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embedding model %s returned no vector", e.model)
	}
	return result.Embeddings[0].Values, nil
}
