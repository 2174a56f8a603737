package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/textgraph/ai/mock"
	"github.com/poiesic/textgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultsFromTexts(texts ...string) []*core.SearchResult {
	results := make([]*core.SearchResult, len(texts))
	for i, text := range texts {
		results[i] = &core.SearchResult{
			Chunk: core.NewChunk(1, i+1, i*100, text),
			Score: 1.0 - float32(i)*0.1,
		}
	}
	return results
}

func TestAssemblePassesPassagesInOrder(t *testing.T) {
	summarizer := mock.NewMockSummarizer()

	var gotQuestion string
	var gotPassages []string
	summarizer.SummarizeFunc = func(ctx context.Context, question string, passages []string) (string, error) {
		gotQuestion = question
		gotPassages = passages
		return "a synthesized answer", nil
	}

	assembler, err := NewAssembler(summarizer)
	require.NoError(t, err)

	results := resultsFromTexts("highest ranked passage", "second passage", "third passage")
	answer, err := assembler.Assemble(context.Background(), "what happened?", results)
	require.NoError(t, err)

	assert.Equal(t, "a synthesized answer", answer)
	assert.Equal(t, "what happened?", gotQuestion)
	assert.Equal(t, []string{"highest ranked passage", "second passage", "third passage"}, gotPassages)
}

func TestAssembleNoPassages(t *testing.T) {
	assembler, err := NewAssembler(mock.NewMockSummarizer())
	require.NoError(t, err)

	_, err = assembler.Assemble(context.Background(), "anything?", nil)
	assert.ErrorIs(t, err, ErrNoPassages)
}

func TestAssembleSummarizerError(t *testing.T) {
	summarizer := mock.NewMockSummarizer()
	summarizer.SummarizeFunc = func(ctx context.Context, question string, passages []string) (string, error) {
		return "", errors.New("model unavailable")
	}

	assembler, err := NewAssembler(summarizer)
	require.NoError(t, err)

	_, err = assembler.Assemble(context.Background(), "anything?", resultsFromTexts("a passage"))
	assert.Error(t, err)
}

func TestNewAssemblerRequiresSummarizer(t *testing.T) {
	_, err := NewAssembler(nil)
	assert.ErrorIs(t, err, ErrSummarizerRequired)
}
