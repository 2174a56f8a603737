package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is derived from entity content using content-based hashing, which makes
// identity idempotent: ingesting identical content yields the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Document represents an ingested source file or URI.
// It is identified by a stable key; re-ingesting the same key updates the
// attributes in place rather than creating a second entity.
type Document struct {
	Id         ID
	Key        string // Stable filename/URI key
	Type       string // Document type (e.g. "text", "markdown")
	Domain     string // Domain tag for grouping
	SourcePath string
	Metadata   map[string]string // Optional metadata (e.g. "mime", "origin")
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// NewDocument builds a document with a key-derived ID.
func NewDocument(key, docType, domain, sourcePath string) *Document {
	return &Document{
		Id:         IDFromContent(key),
		Key:        key,
		Type:       docType,
		Domain:     domain,
		SourcePath: sourcePath,
	}
}

// Chunk is a bounded, possibly overlapping segment of a document's text.
// Its ID is the content hash of the exact text, so re-chunking identical
// text yields the same chunk identity.
type Chunk struct {
	Id         ID
	DocumentId ID
	Position   int // 1-based ordinal within the document
	Offset     int // Character offset of the chunk within the document text
	Length     int // Character length of the text
	TokenCount int // Whitespace-delimited word count
	Text       string
	Vector     []float32 // Embedding vector; empty until the embedding step runs
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// NewChunk builds a chunk for the given document with a content-derived ID
// and derived length/token counts.
func NewChunk(documentId ID, position, offset int, text string) *Chunk {
	return &Chunk{
		Id:         IDFromContent(text),
		DocumentId: documentId,
		Position:   position,
		Offset:     offset,
		Length:     len(text),
		TokenCount: len(strings.Fields(text)),
		Text:       text,
	}
}

// FirstEdge links a document to its first chunk in document order.
// Exactly one exists per document with chunks.
type FirstEdge struct {
	DocumentId ID
	ChunkId    ID
}

// NextEdge links a chunk to its successor in document order. The first and
// next edges form a singly linked, acyclic chain that visits every chunk of
// a document exactly once, in position order.
type NextEdge struct {
	FromChunkId ID
	ToChunkId   ID
}

// ChunkMatch represents a chunk matched by vector similarity search.
type ChunkMatch struct {
	Chunk *Chunk
	Score float32
}

// SearchBranch identifies which retrieval branch produced a result.
type SearchBranch string

const (
	// BranchVector marks results from vector similarity search.
	BranchVector SearchBranch = "vector"
	// BranchLexical marks results from lexical substring search.
	BranchLexical SearchBranch = "lexical"
	// BranchContext marks results added by document-order context expansion.
	BranchContext SearchBranch = "context"
)

// SearchResult represents a ranked search result with its normalized score.
// Score lies in [0,1] after fusion regardless of the producing branch.
type SearchResult struct {
	Chunk  *Chunk
	Score  float32
	Branch SearchBranch
}
