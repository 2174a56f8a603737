package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
)

func TestDocumentBasics(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	doc := core.NewDocument("guides/install", "text", "guides", "")
	merged, err := docRepo.MergeDocuments(ctx, doc)
	if err != nil {
		t.Fatalf("Failed to merge document: %v", err)
	}
	if len(merged) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(merged))
	}
	if merged[0].InsertedAt.IsZero() || merged[0].UpdatedAt.IsZero() {
		t.Fatal("Expected timestamps to be set")
	}

	retrieved, err := docRepo.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Key != "guides/install" {
		t.Fatalf("Expected 'guides/install', got '%s'", retrieved.Key)
	}

	byKey, err := docRepo.GetDocumentByKey(ctx, "guides/install")
	if err != nil {
		t.Fatalf("Failed to get document by key: %v", err)
	}
	if byKey.Id != doc.Id {
		t.Fatalf("Expected ID %d, got %d", doc.Id, byKey.Id)
	}
}

func TestDocumentMergeIsIdempotent(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	first, err := docRepo.MergeDocuments(ctx, core.NewDocument("same-key", "text", "", ""))
	if err != nil {
		t.Fatalf("Failed to merge document: %v", err)
	}
	insertedAt := first[0].InsertedAt

	time.Sleep(5 * time.Millisecond)

	// Re-merge with changed attributes
	updated := core.NewDocument("same-key", "markdown", "docs", "/docs/same-key.md")
	second, err := docRepo.MergeDocuments(ctx, updated)
	if err != nil {
		t.Fatalf("Failed to re-merge document: %v", err)
	}
	if second[0].Id != first[0].Id {
		t.Fatalf("Expected same ID, got %d and %d", first[0].Id, second[0].Id)
	}
	if !second[0].InsertedAt.Equal(insertedAt) {
		t.Fatal("Expected InsertedAt to be preserved on re-merge")
	}
	if !second[0].UpdatedAt.After(insertedAt) {
		t.Fatal("Expected UpdatedAt to advance on re-merge")
	}

	// Still exactly one document
	all, err := docRepo.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(all))
	}
	if all[0].Type != "markdown" {
		t.Fatalf("Expected attributes updated in place, got type '%s'", all[0].Type)
	}
}

func TestListDocumentsOrderedByKey(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	for _, key := range []string{"cherry", "apple", "banana"} {
		if _, err := docRepo.MergeDocuments(ctx, core.NewDocument(key, "text", "", "")); err != nil {
			t.Fatalf("Failed to merge %s: %v", key, err)
		}
	}

	all, err := docRepo.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(all))
	}
	want := []string{"apple", "banana", "cherry"}
	for i, key := range want {
		if all[i].Key != key {
			t.Fatalf("Expected %s at index %d, got %s", key, i, all[i].Key)
		}
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	if _, err := docRepo.GetDocument(ctx, 12345); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if _, err := docRepo.GetDocumentByKey(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDocumentsCascades(t *testing.T) {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	doc := core.NewDocument("doomed", "text", "", "")
	if _, err := docRepo.MergeDocuments(ctx, doc); err != nil {
		t.Fatalf("Failed to merge document: %v", err)
	}

	chunks := []*core.Chunk{
		core.NewChunk(doc.Id, 1, 0, "doomed first chunk"),
		core.NewChunk(doc.Id, 2, 10, "doomed second chunk"),
	}
	if _, err := chunkRepo.MergeChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to merge chunks: %v", err)
	}
	if err := chunkRepo.MergeFirstEdges(ctx, core.FirstEdge{DocumentId: doc.Id, ChunkId: chunks[0].Id}); err != nil {
		t.Fatalf("Failed to merge first edge: %v", err)
	}
	if err := chunkRepo.MergeNextEdges(ctx, core.NextEdge{FromChunkId: chunks[0].Id, ToChunkId: chunks[1].Id}); err != nil {
		t.Fatalf("Failed to merge next edge: %v", err)
	}

	if err := docRepo.DeleteDocuments(ctx, doc.Id); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}

	if _, err := docRepo.GetDocument(ctx, doc.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected document gone, got %v", err)
	}
	if _, err := chunkRepo.FirstChunkID(ctx, doc.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected first edge gone, got %v", err)
	}
	if _, err := chunkRepo.NextChunkID(ctx, chunks[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected next edge gone, got %v", err)
	}
	ordered, err := chunkRepo.GetDocumentChunks(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document chunks: %v", err)
	}
	if len(ordered) != 0 {
		t.Fatalf("Expected position index cleared, got %d entries", len(ordered))
	}

	// Deleting a missing document reports not found
	if err := docRepo.DeleteDocuments(ctx, doc.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
