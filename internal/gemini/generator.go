package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// Generator implements pipeline.Generator via Models.GenerateContent.
type Generator struct {
	client *genai.Client
	model  string
}

var _ pipeline.Generator = (*Generator)(nil)

// NewGenerator creates a Generator for the given model.
func NewGenerator(client *genai.Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Complete submits the conversation history plus the current question and
// returns the model's text verbatim.
func (g *Generator) Complete(ctx context.Context, system, question string, history []pipeline.Message) (string, error) {
	contents := buildContents(question, history)
	config := buildConfig(system)

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if result == nil {
		return "", fmt.Errorf("model %s returned nil result", g.model)
	}
	return result.Text(), nil
}

func buildConfig(system string) *genai.GenerateContentConfig {
	temp := float32(0.4)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	return cfg
}

func buildContents(question string, history []pipeline.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.RoleModel
		if msg.Role == "user" {
			role = genai.RoleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: question}},
	})
	return contents
}
