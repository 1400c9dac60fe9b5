package app

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/ai"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("  Who wrote it? ", []ContextChunk{
		{DocumentID: "d1", Filename: "report.pdf", Page: 3, Text: " First passage. "},
		{DocumentID: "d2", Filename: "notes.txt", Text: "Second passage."},
		{DocumentID: "d3", Text: "Third passage."},
	})

	want := "Context:\n" +
		"\n[1] document d1 (report.pdf, page 3)\nFirst passage.\n" +
		"\n[2] document d2 (notes.txt)\nSecond passage.\n" +
		"\n[3] document d3\nThird passage.\n" +
		"\nQuestion: Who wrote it?\n\nAnswer:"
	assert.Equal(t, want, prompt)
}

func TestAnswerGenerator_ReturnsAnswerVerbatim(t *testing.T) {
	completer := &scriptedCompleter{answer: func(string) (string, error) { return "  spaced answer\n", nil }}
	g := NewAnswerGenerator(completer, ai.RetryPolicy{MaxAttempts: 1}, nil)

	answer, err := g.Generate(context.Background(), "q", []ContextChunk{{DocumentID: "d", Text: "t"}})
	require.NoError(t, err)
	assert.Equal(t, "  spaced answer\n", answer)
}

func TestAnswerGenerator_DoesNotRetryClientErrors(t *testing.T) {
	completer := &scriptedCompleter{answer: func(string) (string, error) {
		return "", &ai.StatusError{StatusCode: http.StatusUnauthorized}
	}}
	g := NewAnswerGenerator(completer, ai.RetryPolicy{MaxAttempts: 5}, nil)

	_, err := g.Generate(context.Background(), "q", nil)
	require.ErrorIs(t, err, ErrGenerationFailure)
	assert.Equal(t, 1, completer.calls())
}

func TestRetriever_TopK(t *testing.T) {
	r := NewRetriever(nil, 6, 50)
	assert.Equal(t, 6, r.TopK(0))
	assert.Equal(t, 6, r.TopK(-3))
	assert.Equal(t, 4, r.TopK(4))
	assert.Equal(t, 50, r.TopK(500))
}
