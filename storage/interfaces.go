package storage

import (
	"context"

	"github.com/poiesic/textgraph/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing document nodes.
type DocumentRepository interface {
	Repository
	// MergeDocuments creates or updates documents by their key-derived IDs.
	// Existing documents keep their InsertedAt timestamp and have their
	// attributes updated in place; re-merging never duplicates an entity.
	// Returns the documents with timestamps populated.
	MergeDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocumentByKey retrieves a document by its stable key.
	// Returns ErrNotFound if no document with that key exists.
	GetDocumentByKey(ctx context.Context, key string) (*core.Document, error)

	// ListDocuments retrieves all documents, ordered by key.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error
}

// ChunkRepository provides operations for managing chunk nodes and the
// order/membership relations between chunks and documents.
type ChunkRepository interface {
	Repository
	// MergeChunks creates or updates chunks by their content-derived IDs,
	// together with the position index entry that records membership and
	// document order. Existing chunks keep their InsertedAt timestamp.
	// Returns the chunks with timestamps populated.
	MergeChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetDocumentChunks retrieves all chunks of a document in position order.
	GetDocumentChunks(ctx context.Context, documentId core.ID) ([]*core.Chunk, error)

	// GetChunkAt retrieves the chunk at a 1-based position within a document.
	// Returns ErrNotFound if no chunk exists at that position.
	GetChunkAt(ctx context.Context, documentId core.ID, position int) (*core.Chunk, error)

	// MergeFirstEdges creates or updates document-to-first-chunk order edges.
	// Endpoint chunks must already exist; a missing endpoint fails the batch
	// with ErrMissingEndpoint.
	MergeFirstEdges(ctx context.Context, edges ...core.FirstEdge) error

	// MergeNextEdges creates or updates chunk-to-chunk order edges.
	// Endpoint chunks must already exist; a missing endpoint fails the batch
	// with ErrMissingEndpoint.
	MergeNextEdges(ctx context.Context, edges ...core.NextEdge) error

	// FirstChunkID returns the target of a document's "first" edge.
	// Returns ErrNotFound if the document has no first edge.
	FirstChunkID(ctx context.Context, documentId core.ID) (core.ID, error)

	// NextChunkID returns the target of a chunk's "next" edge.
	// Returns ErrNotFound at the end of the chain.
	NextChunkID(ctx context.Context, chunkId core.ID) (core.ID, error)

	// FindSimilar finds chunks similar to the given vector, restricted to
	// chunks carrying an embedding. Returns chunks with cosine similarity
	// >= minSimilarity, up to limit results, highest first.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ChunkMatch, error)

	// ScanChunks iterates all chunk records, invoking fn for each. Iteration
	// stops when fn returns false or an error.
	ScanChunks(ctx context.Context, fn func(chunk *core.Chunk) (bool, error)) error

	// TrimPositions removes position index entries and order edges past
	// maxPosition for a document. Used when a re-ingested document shrinks.
	// Chunk records themselves are left in place as they may be shared.
	TrimPositions(ctx context.Context, documentId core.ID, maxPosition int) error
}
