package search

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/textgraph/ai"
	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
)

const (
	// vectorMinSimilarity filters the vector branch before fusion.
	vectorMinSimilarity float32 = 0.60

	// qualityFloor drops fused results below an absolute normalized score.
	// Much lower than vectorMinSimilarity since lexical scores are not on
	// the same scale as cosine similarities.
	qualityFloor float32 = 0.25

	// neutralScore replaces scores that are not a finite number.
	neutralScore float32 = 0.5

	// dedupePrefixLen is the number of leading text bytes in the
	// deduplication key.
	dedupePrefixLen = 50
)

// Searcher runs strategy-driven retrieval over chunked documents.
type Searcher struct {
	chunks   storage.ChunkRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(chunks storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		chunks:   chunks,
		embedder: embedder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs the named strategy against the store and returns up to limit
// ranked, deduplicated results. An unknown strategy name falls back to the
// default strategy rather than failing. Branch failures degrade the result
// set instead of surfacing as errors; only invalid input is an error.
func (s *Searcher) Search(ctx context.Context, query, strategyName string, limit int) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, strategyName, limit, nil)
}

// SearchWithMonitor runs a search with monitoring callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query, strategyName string, limit int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit < 1 {
		limit = 10
	}

	monitor.Start(query)

	strategy, known := resolveStrategy(strategyName)
	if !known && strategyName != "" {
		s.logger.Warn("unknown search strategy, using default",
			"requested", strategyName,
			"default", DefaultStrategyName)
	}
	monitor.StrategyResolved(strategy, strategyName)

	// Run the branches concurrently and join before fusion. Branch errors
	// are captured, not returned, so one failing branch can't sink a
	// request the other branch can serve.
	var (
		vectorResults  []*core.SearchResult
		vectorErr      error
		lexicalResults []*core.SearchResult
		lexicalErr     error
	)

	g, gctx := errgroup.WithContext(ctx)

	if strategy.Vector {
		g.Go(func() error {
			vectorResults, vectorErr = s.vectorSearch(gctx, query, limit)
			return nil
		})
	}
	if strategy.Lexical {
		g.Go(func() error {
			lexicalResults, lexicalErr = lexicalSearch(gctx, s.chunks, query)
			return nil
		})
	}
	g.Wait()

	if vectorErr != nil {
		monitor.VectorBranchDegraded(vectorErr)
		if strategy.LexicalFallback && !strategy.Lexical {
			s.logger.Warn("vector branch failed, falling back to lexical search", "err", vectorErr)
			lexicalResults, lexicalErr = lexicalSearch(ctx, s.chunks, query)
		} else {
			s.logger.Warn("vector branch failed", "err", vectorErr)
		}
	}
	if lexicalErr != nil {
		s.logger.Warn("lexical branch failed", "err", lexicalErr)
		lexicalResults = nil
	}

	monitor.AfterVectorSearch(resultIDs(vectorResults))
	monitor.AfterLexicalSearch(resultIDs(lexicalResults))

	// Concatenate, vector results first so ties favor semantic hits
	candidates := make([]*core.SearchResult, 0, len(vectorResults)+len(lexicalResults))
	candidates = append(candidates, vectorResults...)
	for _, result := range lexicalResults {
		if strategy.LexicalWeight > 0 {
			result.Score *= strategy.LexicalWeight
		}
		candidates = append(candidates, result)
	}

	if strategy.Expand && len(vectorResults) > 0 {
		neighbors, err := expandContext(ctx, s.chunks, vectorResults, strategy.Window)
		if err != nil {
			s.logger.Warn("context expansion failed", "err", err)
		} else {
			monitor.AfterContextExpansion(resultIDs(neighbors))
			candidates = append(candidates, neighbors...)
		}
	}

	results := fuse(candidates, limit)
	monitor.Finish(results)

	return results, nil
}

// vectorSearch embeds the query and runs a similarity scan restricted to
// chunks carrying an embedding.
func (s *Searcher) vectorSearch(ctx context.Context, query string, limit int) ([]*core.SearchResult, error) {
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.chunks.FindSimilar(ctx, embedding, vectorMinSimilarity, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, &core.SearchResult{
			Chunk:  match.Chunk,
			Score:  match.Score,
			Branch: core.BranchVector,
		})
	}
	return results, nil
}

// fuse runs the shared post-processing pipeline: normalize, stable sort,
// deduplicate, quality filter, truncate. Truncation happens last so
// deduplication sees the full candidate set.
func fuse(candidates []*core.SearchResult, limit int) []*core.SearchResult {
	for _, candidate := range candidates {
		candidate.Score = normalizeScore(candidate.Score)
	}

	// Stable so ties preserve concatenation order
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	seen := make(map[string]bool, len(candidates))
	results := make([]*core.SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		key := dedupeKey(candidate.Chunk)
		if seen[key] {
			continue
		}
		seen[key] = true

		if candidate.Score < qualityFloor {
			continue
		}
		results = append(results, candidate)
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// normalizeScore maps a raw branch score onto [0,1].
func normalizeScore(score float32) float32 {
	if math.IsNaN(float64(score)) || math.IsInf(float64(score), 0) {
		return neutralScore
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// dedupeKey builds the composite deduplication key from the chunk's source
// identity and a prefix of its text.
func dedupeKey(chunk *core.Chunk) string {
	prefix := chunk.Text
	if len(prefix) > dedupePrefixLen {
		prefix = prefix[:dedupePrefixLen]
	}
	return string(storage.MarshalID(chunk.DocumentId)) + "\x00" + prefix
}

func resultIDs(results []*core.SearchResult) []uint64 {
	ids := make([]uint64, 0, len(results))
	for _, result := range results {
		ids = append(ids, uint64(result.Chunk.Id))
	}
	return ids
}
