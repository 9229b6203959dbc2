package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Generator struct {
	client *genai.Client
	model  string
}

func NewGenerator(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Generator, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, model: model}, nil
}

// Generate performs a single-turn call: the system instruction constrains the
// model to the supplied context, the user message is the full prompt. Errors
// are not retried here; retry policy belongs to the caller.
func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	gm := g.client.GenerativeModel(g.model)
	gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	resp, err := gm.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "error", err, "model", g.model)
		return "", err
	}

	answer := responseText(resp)
	if answer == "" {
		return "", fmt.Errorf("model returned no text candidates")
	}
	return answer, nil
}

func (g *Generator) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	var out string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				out += string(t)
			}
		}
	}
	return out
}
