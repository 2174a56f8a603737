package answer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/textgraph/ai"
	"github.com/poiesic/textgraph/core"
)

var (
	// ErrSummarizerRequired is returned when a summarizer is not provided.
	ErrSummarizerRequired = errors.New("summarizer required")

	// ErrNoPassages is returned when there are no passages to answer from.
	ErrNoPassages = errors.New("no passages to answer from")
)

// Assembler turns ranked search results into a natural-language answer by
// handing the passage texts to a summarization service. Ranking is the
// searcher's job; the assembler preserves the order it is given.
type Assembler struct {
	summarizer ai.Summarizer
	logger     *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAssembler creates a new answer assembler.
func NewAssembler(summarizer ai.Summarizer, opts ...Option) (*Assembler, error) {
	if summarizer == nil {
		return nil, ErrSummarizerRequired
	}

	a := &Assembler{
		summarizer: summarizer,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Assemble composes an answer to the question from the ranked results.
func (a *Assembler) Assemble(ctx context.Context, question string, results []*core.SearchResult) (string, error) {
	if len(results) == 0 {
		return "", ErrNoPassages
	}

	passages := make([]string, 0, len(results))
	for _, result := range results {
		passages = append(passages, result.Chunk.Text)
	}

	answer, err := a.summarizer.Summarize(ctx, question, passages)
	if err != nil {
		return "", err
	}

	a.logger.Debug("answer assembled",
		"question", question,
		"passages", len(passages))

	return answer, nil
}
