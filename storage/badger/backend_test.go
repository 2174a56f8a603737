package badger

import (
	"context"
	"testing"

	"github.com/poiesic/textgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSimilar(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()
	doc := core.NewDocument("similar", "text", "", "")
	_, err = docRepo.MergeDocuments(ctx, doc)
	require.NoError(t, err)

	near := core.NewChunk(doc.Id, 1, 0, "a passage about sailing")
	near.Vector = []float32{1, 0, 0}
	far := core.NewChunk(doc.Id, 2, 100, "a passage about baking")
	far.Vector = []float32{0, 1, 0}
	unembedded := core.NewChunk(doc.Id, 3, 200, "a passage not yet embedded")

	_, err = chunkRepo.MergeChunks(ctx, near, far, unembedded)
	require.NoError(t, err)

	matches, err := chunkRepo.FindSimilar(ctx, []float32{1, 0, 0}, 0.60, 10)
	require.NoError(t, err)

	// Only the aligned vector passes the threshold; the chunk without an
	// embedding is never a candidate.
	require.Len(t, matches, 1)
	assert.Equal(t, near.Id, matches[0].Chunk.Id)
	assert.InDelta(t, 1.0, float64(matches[0].Score), 1e-5)
}

func TestFindSimilarOrderAndLimit(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()
	doc := core.NewDocument("ranked", "text", "", "")
	_, err = docRepo.MergeDocuments(ctx, doc)
	require.NoError(t, err)

	exact := core.NewChunk(doc.Id, 1, 0, "an exact match")
	exact.Vector = []float32{1, 0}
	weaker := core.NewChunk(doc.Id, 2, 100, "a weaker match")
	weaker.Vector = []float32{0.9, 0.2}
	closer := core.NewChunk(doc.Id, 3, 200, "a closer match")
	closer.Vector = []float32{0.95, 0.1}

	_, err = chunkRepo.MergeChunks(ctx, exact, weaker, closer)
	require.NoError(t, err)

	matches, err := chunkRepo.FindSimilar(ctx, []float32{1, 0}, 0.60, 2)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, exact.Id, matches[0].Chunk.Id)
	assert.Equal(t, closer.Id, matches[1].Chunk.Id)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestScanChunks(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()
	_, chunks := seedChunks(t, docRepo, chunkRepo, "scan", 4)

	seen := 0
	err = chunkRepo.ScanChunks(ctx, func(chunk *core.Chunk) (bool, error) {
		seen++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, len(chunks), seen)

	// Early termination
	seen = 0
	err = chunkRepo.ScanChunks(ctx, func(chunk *core.Chunk) (bool, error) {
		seen++
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, float64(cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3})), 1e-5)
	assert.InDelta(t, 0.0, float64(cosineSimilarity([]float32{1, 0}, []float32{0, 1})), 1e-5)
	assert.InDelta(t, -1.0, float64(cosineSimilarity([]float32{1, 0}, []float32{-1, 0})), 1e-5)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, float32(0), cosineSimilarity(nil, []float32{1, 1}))
}

func TestOpenBackendInMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}
