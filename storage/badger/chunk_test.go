package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
)

// seedChunks merges a document with n ordered chunks and their order edges.
func seedChunks(t *testing.T, docRepo storage.DocumentRepository, chunkRepo storage.ChunkRepository, key string, n int) (*core.Document, []*core.Chunk) {
	t.Helper()
	ctx := context.Background()

	doc := core.NewDocument(key, "text", "", "")
	if _, err := docRepo.MergeDocuments(ctx, doc); err != nil {
		t.Fatalf("Failed to merge document: %v", err)
	}

	chunks := make([]*core.Chunk, n)
	for i := 0; i < n; i++ {
		chunks[i] = core.NewChunk(doc.Id, i+1, i*100, fmt.Sprintf("%s chunk %d body", key, i+1))
	}
	if _, err := chunkRepo.MergeChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to merge chunks: %v", err)
	}

	if n > 0 {
		if err := chunkRepo.MergeFirstEdges(ctx, core.FirstEdge{DocumentId: doc.Id, ChunkId: chunks[0].Id}); err != nil {
			t.Fatalf("Failed to merge first edge: %v", err)
		}
	}
	for i := 0; i < n-1; i++ {
		if err := chunkRepo.MergeNextEdges(ctx, core.NextEdge{FromChunkId: chunks[i].Id, ToChunkId: chunks[i+1].Id}); err != nil {
			t.Fatalf("Failed to merge next edge: %v", err)
		}
	}
	return doc, chunks
}

func TestChunkBasics(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()
	doc, chunks := seedChunks(t, docRepo, chunkRepo, "basics", 3)

	retrieved, err := chunkRepo.GetChunk(ctx, chunks[1].Id)
	if err != nil {
		t.Fatalf("Failed to get chunk: %v", err)
	}
	if retrieved.Text != chunks[1].Text {
		t.Fatalf("Expected %q, got %q", chunks[1].Text, retrieved.Text)
	}
	if retrieved.DocumentId != doc.Id {
		t.Fatal("Expected membership to survive the round trip")
	}

	many, err := chunkRepo.GetChunks(ctx, chunks[0].Id, 99999, chunks[2].Id)
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(many) != 2 {
		t.Fatalf("Expected missing IDs skipped, got %d chunks", len(many))
	}

	if _, err := chunkRepo.GetChunk(ctx, 99999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestChunksOrderedByPosition(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()
	doc, _ := seedChunks(t, docRepo, chunkRepo, "ordered", 12)

	ordered, err := chunkRepo.GetDocumentChunks(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document chunks: %v", err)
	}
	if len(ordered) != 12 {
		t.Fatalf("Expected 12 chunks, got %d", len(ordered))
	}
	for i, chunk := range ordered {
		if chunk.Position != i+1 {
			t.Fatalf("Expected position %d at index %d, got %d", i+1, i, chunk.Position)
		}
	}

	at, err := chunkRepo.GetChunkAt(ctx, doc.Id, 7)
	if err != nil {
		t.Fatalf("Failed to get chunk at position: %v", err)
	}
	if at.Position != 7 {
		t.Fatalf("Expected position 7, got %d", at.Position)
	}

	if _, err := chunkRepo.GetChunkAt(ctx, doc.Id, 13); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound past the end, got %v", err)
	}
}

func TestChunkMergePreservesExistingState(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()
	doc := core.NewDocument("preserve", "text", "", "")
	if _, err := docRepo.MergeDocuments(ctx, doc); err != nil {
		t.Fatalf("Failed to merge document: %v", err)
	}

	withVector := core.NewChunk(doc.Id, 1, 0, "stable chunk text")
	withVector.Vector = []float32{0.1, 0.2, 0.3}
	first, err := chunkRepo.MergeChunks(ctx, withVector)
	if err != nil {
		t.Fatalf("Failed to merge chunk: %v", err)
	}
	insertedAt := first[0].InsertedAt

	time.Sleep(5 * time.Millisecond)

	// Re-merge the same text without a vector
	bare := core.NewChunk(doc.Id, 1, 0, "stable chunk text")
	second, err := chunkRepo.MergeChunks(ctx, bare)
	if err != nil {
		t.Fatalf("Failed to re-merge chunk: %v", err)
	}
	if !second[0].InsertedAt.Equal(insertedAt) {
		t.Fatal("Expected InsertedAt to be preserved on re-merge")
	}
	if len(second[0].Vector) != 3 {
		t.Fatal("Expected existing vector to be kept when the incoming chunk has none")
	}
}

func TestChainWalk(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()
	doc, chunks := seedChunks(t, docRepo, chunkRepo, "walk", 5)

	// Walk first/next edges; must visit all chunks in order and terminate
	visited := make(map[core.ID]bool)
	current, err := chunkRepo.FirstChunkID(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get first chunk: %v", err)
	}

	order := []core.ID{current}
	visited[current] = true
	for {
		next, err := chunkRepo.NextChunkID(ctx, current)
		if errors.Is(err, storage.ErrNotFound) {
			break
		}
		if err != nil {
			t.Fatalf("Failed to get next chunk: %v", err)
		}
		if visited[next] {
			t.Fatal("Cycle detected in chunk chain")
		}
		visited[next] = true
		order = append(order, next)
		current = next
	}

	if len(order) != 5 {
		t.Fatalf("Expected chain of 5 chunks, got %d", len(order))
	}
	for i, id := range order {
		if id != chunks[i].Id {
			t.Fatalf("Chain out of order at %d", i)
		}
	}
}

func TestConcurrentMergeSharedChunks(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	// Identical text across documents means identical chunk records, so
	// concurrent writers contend on the same keys.
	docs := make([]*core.Document, 4)
	for i := range docs {
		docs[i] = core.NewDocument(fmt.Sprintf("concurrent-%d", i), "text", "", "")
		if _, err := docRepo.MergeDocuments(ctx, docs[i]); err != nil {
			t.Fatalf("Failed to merge document: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(docs))
	for _, doc := range docs {
		doc := doc
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunks := []*core.Chunk{
				core.NewChunk(doc.Id, 1, 0, "a passage shared verbatim"),
				core.NewChunk(doc.Id, 2, 100, "a second shared passage"),
			}
			if _, err := chunkRepo.MergeChunks(ctx, chunks...); err != nil {
				errs <- err
				return
			}
			if err := chunkRepo.MergeFirstEdges(ctx, core.FirstEdge{DocumentId: doc.Id, ChunkId: chunks[0].Id}); err != nil {
				errs <- err
				return
			}
			errs <- chunkRepo.MergeNextEdges(ctx, core.NextEdge{FromChunkId: chunks[0].Id, ToChunkId: chunks[1].Id})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent merge failed: %v", err)
		}
	}

	// No writer lost its document order to a conflicting commit
	for _, doc := range docs {
		ordered, err := chunkRepo.GetDocumentChunks(ctx, doc.Id)
		if err != nil {
			t.Fatalf("Failed to get document chunks: %v", err)
		}
		if len(ordered) != 2 {
			t.Fatalf("Expected 2 chunks for %s, got %d", doc.Key, len(ordered))
		}
	}
}

func TestEdgeEndpointVerification(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()
	doc, chunks := seedChunks(t, docRepo, chunkRepo, "edges", 2)

	err = chunkRepo.MergeNextEdges(ctx, core.NextEdge{FromChunkId: chunks[1].Id, ToChunkId: 424242})
	if !errors.Is(err, storage.ErrMissingEndpoint) {
		t.Fatalf("Expected ErrMissingEndpoint, got %v", err)
	}

	err = chunkRepo.MergeFirstEdges(ctx, core.FirstEdge{DocumentId: doc.Id, ChunkId: 424242})
	if !errors.Is(err, storage.ErrMissingEndpoint) {
		t.Fatalf("Expected ErrMissingEndpoint, got %v", err)
	}
}

func TestTrimPositions(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()
	doc, chunks := seedChunks(t, docRepo, chunkRepo, "trim", 6)

	if err := chunkRepo.TrimPositions(ctx, doc.Id, 4); err != nil {
		t.Fatalf("Failed to trim positions: %v", err)
	}

	ordered, err := chunkRepo.GetDocumentChunks(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document chunks: %v", err)
	}
	if len(ordered) != 4 {
		t.Fatalf("Expected 4 chunks after trim, got %d", len(ordered))
	}

	// The new last chunk no longer points forward
	if _, err := chunkRepo.NextChunkID(ctx, chunks[3].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected trimmed next edge, got %v", err)
	}
	// Trimmed chunks lost their next edges too
	if _, err := chunkRepo.NextChunkID(ctx, chunks[4].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected trimmed next edge, got %v", err)
	}
	// Chunk records themselves remain
	if _, err := chunkRepo.GetChunk(ctx, chunks[5].Id); err != nil {
		t.Fatalf("Expected chunk record to survive trim: %v", err)
	}

	// Trimming to zero removes the first edge as well
	if err := chunkRepo.TrimPositions(ctx, doc.Id, 0); err != nil {
		t.Fatalf("Failed to trim to zero: %v", err)
	}
	if _, err := chunkRepo.FirstChunkID(ctx, doc.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected first edge removed, got %v", err)
	}
}
