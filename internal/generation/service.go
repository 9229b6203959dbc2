// Package generation composes grounding prompts and extracts answers.
package generation

import (
	"context"
	"fmt"
	"strings"

	"fleetrag/internal/retrieval"
)

// systemInstruction constrains the model to the supplied context. The "cite
// sources" part is advisory to the model; source attribution below is
// computed from the retrieved set, not from the model's text.
const systemInstruction = `You are a helpful assistant that answers questions about truck service invoices.
Answer questions based ONLY on the provided invoice context. If the answer is not in the context,
say "I cannot find this information in the provided invoices." Be specific and cite the invoices when relevant.`

const chunkSeparator = "\n\n---\n\n"

// Model is a single-turn generative model call. No conversation state is
// retained between calls.
type Model interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type Service struct {
	model Model
}

func NewService(m Model) *Service {
	return &Service{model: m}
}

// Generate builds the grounding prompt from the retrieved chunks and invokes
// the model once. The answer is returned verbatim, with no post-processing.
// The returned source invoice ids are the de-duplicated invoice_id values of
// exactly the chunks passed in (first-seen order): attribution is a property
// of what was retrieved, since the model is assumed to draw on everything it
// was given. Model-call failures propagate to the caller; there is no safe
// local fallback for "no answer".
func (s *Service) Generate(ctx context.Context, query string, retrieved []retrieval.RetrievedChunk) (string, []string, error) {
	answer, err := s.model.Generate(ctx, systemInstruction, BuildPrompt(query, retrieved))
	if err != nil {
		return "", nil, err
	}
	return answer, SourceInvoices(retrieved), nil
}

// BuildPrompt embeds the retrieved chunk texts and the literal query inside
// the fixed instructional template.
func BuildPrompt(query string, retrieved []retrieval.RetrievedChunk) string {
	texts := make([]string, 0, len(retrieved))
	for _, c := range retrieved {
		texts = append(texts, c.Text)
	}
	context := strings.Join(texts, chunkSeparator)

	return fmt.Sprintf(`Based on the following invoice context, answer this question: %s

INVOICE CONTEXT:
%s

Please provide a clear, concise answer based only on the information above.`, query, context)
}

// SourceInvoices returns the distinct invoice_id values across the retrieved
// chunks, in first-seen order. Chunks without an invoice_id count under
// "UNKNOWN".
func SourceInvoices(retrieved []retrieval.RetrievedChunk) []string {
	seen := make(map[string]bool, len(retrieved))
	var ids []string
	for _, c := range retrieved {
		id := c.Metadata["invoice_id"]
		if id == "" {
			id = "UNKNOWN"
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
