package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa/internal/ai"
)

// Completer is a generative model that answers a prompt.
type Completer interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// ContextChunk is one retrieved passage as shown to the model.
type ContextChunk struct {
	DocumentID string
	Filename   string
	Page       int
	Text       string
}

const systemPrompt = "You are a helpful assistant that answers questions about uploaded documents. " +
	"Answer using only the numbered context passages below. " +
	"If they do not contain enough information to answer, say that the documents do not contain the answer. " +
	"Do not make up facts."

type AnswerGenerator struct {
	model  Completer
	policy ai.RetryPolicy
	logger *slog.Logger
}

func NewAnswerGenerator(model Completer, policy ai.RetryPolicy, logger *slog.Logger) *AnswerGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerGenerator{model: model, policy: policy, logger: logger}
}

// Generate returns the model's answer verbatim.
func (g *AnswerGenerator) Generate(ctx context.Context, question string, passages []ContextChunk) (string, error) {
	prompt := BuildPrompt(question, passages)

	var answer string
	err := g.policy.Do(ctx, g.logger.With("model", g.model.Name()), func(ctx context.Context) error {
		out, err := g.model.Generate(ctx, systemPrompt, prompt)
		if err != nil {
			return err
		}
		answer = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	return answer, nil
}

// BuildPrompt lists every passage with its source, then the question.
func BuildPrompt(question string, passages []ContextChunk) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "\n[%d] document %s", i+1, p.DocumentID)
		switch {
		case p.Filename != "" && p.Page > 0:
			fmt.Fprintf(&b, " (%s, page %d)", p.Filename, p.Page)
		case p.Filename != "":
			fmt.Fprintf(&b, " (%s)", p.Filename)
		case p.Page > 0:
			fmt.Fprintf(&b, " (page %d)", p.Page)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(p.Text))
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAnswer:")
	return b.String()
}
