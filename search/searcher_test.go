package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/textgraph/ai/mock"
	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
	"github.com/poiesic/textgraph/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMonitor captures the stages a search went through.
type recordingMonitor struct {
	strategy      Strategy
	requestedName string
	vectorIDs     []uint64
	lexicalIDs    []uint64
	contextIDs    []uint64
	degraded      error
	results       []*core.SearchResult
}

func (m *recordingMonitor) Start(_ string) {}
func (m *recordingMonitor) StrategyResolved(s Strategy, requested string) {
	m.strategy = s
	m.requestedName = requested
}
func (m *recordingMonitor) AfterVectorSearch(ids []uint64)     { m.vectorIDs = ids }
func (m *recordingMonitor) VectorBranchDegraded(err error)     { m.degraded = err }
func (m *recordingMonitor) AfterLexicalSearch(ids []uint64)    { m.lexicalIDs = ids }
func (m *recordingMonitor) AfterContextExpansion(ids []uint64) { m.contextIDs = ids }
func (m *recordingMonitor) Finish(results []*core.SearchResult) {
	m.results = results
}

func newSearchFixture(t *testing.T) (storage.DocumentRepository, storage.ChunkRepository) {
	t.Helper()
	docRepo, chunkRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { chunkRepo.Close(); docRepo.Close(); backend.Close() })
	return docRepo, chunkRepo
}

// seedDocument writes a document whose chunks carry the given vectors.
// A nil vector stores the chunk unembedded.
func seedDocument(t *testing.T, docRepo storage.DocumentRepository, chunkRepo storage.ChunkRepository, key string, texts []string, vectors [][]float32) []*core.Chunk {
	t.Helper()
	ctx := context.Background()

	doc := core.NewDocument(key, "text", "", "")
	_, err := docRepo.MergeDocuments(ctx, doc)
	require.NoError(t, err)

	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.NewChunk(doc.Id, i+1, i*100, text)
		if vectors != nil {
			chunks[i].Vector = vectors[i]
		}
	}
	_, err = chunkRepo.MergeChunks(ctx, chunks...)
	require.NoError(t, err)
	return chunks
}

// queryEmbedder returns a fixed vector for every query.
func queryEmbedder(vector []float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return embedder
}

func TestLexicalExactPhrase(t *testing.T) {
	docRepo, chunkRepo := newSearchFixture(t)

	seedDocument(t, docRepo, chunkRepo, "history", []string{
		"He studied chemistry at West Germany University for three years.",
		"The lab moved to a different campus in the eighties.",
	}, nil)

	// No embeddings in the corpus, so the vector branch contributes
	// nothing and the exact lexical match must carry the result.
	searcher, err := NewSearcher(chunkRepo, queryEmbedder([]float32{1, 0, 0}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "West Germany University", "hybrid", 10)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Contains(t, results[0].Chunk.Text, "West Germany University")
	assert.Equal(t, core.BranchLexical, results[0].Branch)
	// Exact substring score, weighted for the hybrid strategy
	assert.InDelta(t, 0.95*0.8, float64(results[0].Score), 1e-5)
}

func TestVectorContextExpansion(t *testing.T) {
	docRepo, chunkRepo := newSearchFixture(t)

	// Ten chunks; only position 5 is aligned with the query vector.
	texts := make([]string, 10)
	vectors := make([][]float32, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("narrative passage number %d of the story", i+1)
		vectors[i] = []float32{0, 1, 0}
	}
	vectors[4] = []float32{1, 0, 0}
	chunks := seedDocument(t, docRepo, chunkRepo, "novel", texts, vectors)

	searcher, err := NewSearcher(chunkRepo, queryEmbedder([]float32{1, 0, 0}))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := searcher.SearchWithMonitor(context.Background(), "what happens midway", "vector-context", 10, monitor)
	require.NoError(t, err)

	// Window 2 around position 5: positions 3..7, direct hit ranked first.
	require.Len(t, results, 5)
	assert.Equal(t, chunks[4].Id, results[0].Chunk.Id)
	assert.Equal(t, core.BranchVector, results[0].Branch)

	positions := map[int]bool{}
	for _, result := range results {
		positions[result.Chunk.Position] = true
	}
	assert.Equal(t, map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true}, positions)

	for _, result := range results[1:] {
		assert.Equal(t, core.BranchContext, result.Branch)
		assert.Less(t, result.Score, results[0].Score)
	}
	assert.Len(t, monitor.contextIDs, 4)
}

func TestContextExpansionClampsAtBounds(t *testing.T) {
	docRepo, chunkRepo := newSearchFixture(t)

	texts := []string{"opening passage of the tale", "second passage of the tale", "closing passage of the tale"}
	vectors := [][]float32{{1, 0}, {0, 1}, {0, 1}}
	chunks := seedDocument(t, docRepo, chunkRepo, "short-tale", texts, vectors)

	searcher, err := NewSearcher(chunkRepo, queryEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "how does it open", "vector-context", 10)
	require.NoError(t, err)

	// Hit at position 1; only positions 2 and 3 exist as neighbors.
	require.Len(t, results, 3)
	assert.Equal(t, chunks[0].Id, results[0].Chunk.Id)
}

func TestUnknownStrategyFallsBack(t *testing.T) {
	docRepo, chunkRepo := newSearchFixture(t)
	seedDocument(t, docRepo, chunkRepo, "fallback", []string{"a chunk about glaciers and ice"}, nil)

	searcher, err := NewSearcher(chunkRepo, queryEmbedder([]float32{1}))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := searcher.SearchWithMonitor(context.Background(), "glaciers and ice", "definitely-not-a-strategy", 10, monitor)

	// Unknown strategy is recovered locally, never surfaced.
	require.NoError(t, err)
	assert.Equal(t, DefaultStrategyName, monitor.strategy.Name)
	assert.Equal(t, "definitely-not-a-strategy", monitor.requestedName)
	require.NotEmpty(t, results)
}

func TestVectorFailureDegradesToLexical(t *testing.T) {
	docRepo, chunkRepo := newSearchFixture(t)
	seedDocument(t, docRepo, chunkRepo, "degraded", []string{"the reactor core temperature rose steadily"}, nil)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding provider offline")
	}

	searcher, err := NewSearcher(chunkRepo, embedder)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := searcher.SearchWithMonitor(context.Background(), "reactor core temperature", "vector", 10, monitor)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.BranchLexical, results[0].Branch)
	assert.Error(t, monitor.degraded)
}

func TestDeduplicationKeepsHighestScore(t *testing.T) {
	docRepo, chunkRepo := newSearchFixture(t)

	// One chunk matched by both branches: semantically aligned and a
	// literal substring hit.
	chunks := seedDocument(t, docRepo, chunkRepo, "both", []string{
		"the observatory tracked the comet all winter",
	}, [][]float32{{1, 0}})

	searcher, err := NewSearcher(chunkRepo, queryEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "observatory tracked the comet", "hybrid", 10)
	require.NoError(t, err)

	// The chunk appears once, with the higher vector score.
	require.Len(t, results, 1)
	assert.Equal(t, chunks[0].Id, results[0].Chunk.Id)
	assert.Equal(t, core.BranchVector, results[0].Branch)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestScoresWithinRange(t *testing.T) {
	docRepo, chunkRepo := newSearchFixture(t)

	texts := []string{
		"mountaineers crossed the ridge at dawn",
		"the ridge was icy and the wind sharp",
		"base camp radioed a storm warning",
	}
	vectors := [][]float32{{1, 0}, {0.8, 0.6}, {0, 1}}
	seedDocument(t, docRepo, chunkRepo, "expedition", texts, vectors)

	searcher, err := NewSearcher(chunkRepo, queryEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "crossing the ridge", "hybrid", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, result := range results {
		assert.GreaterOrEqual(t, result.Score, float32(0))
		assert.LessOrEqual(t, result.Score, float32(1))
	}
}

func TestTruncationAfterFusion(t *testing.T) {
	docRepo, chunkRepo := newSearchFixture(t)

	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("harbor report entry %d mentions the lighthouse", i+1)
	}
	seedDocument(t, docRepo, chunkRepo, "harbor", texts, nil)

	searcher, err := NewSearcher(chunkRepo, queryEmbedder([]float32{1}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "the lighthouse", "hybrid", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestEmptyQueryRejected(t *testing.T) {
	_, chunkRepo := newSearchFixture(t)

	searcher, err := NewSearcher(chunkRepo, mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "", "hybrid", 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestNoResultsIsNotAnError(t *testing.T) {
	_, chunkRepo := newSearchFixture(t)

	searcher, err := NewSearcher(chunkRepo, queryEmbedder([]float32{1}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "anything at all", "hybrid", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
