// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
)

// defaultChunkBatchSize bounds the number of chunk nodes written per
// repository call.
const defaultChunkBatchSize = 100

// GraphWriter persists a document and its chunks as graph nodes and order
// edges. Nodes are written before the edges that reference them, so a
// partially written document is a set of orphan nodes rather than a broken
// chain.
type GraphWriter struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	batchSize int
	logger    *slog.Logger
}

// WriterOption configures a GraphWriter.
type WriterOption func(*GraphWriter) error

// WithChunkBatchSize sets the number of chunk nodes written per batch.
// Values below 1 fall back to the default.
func WithChunkBatchSize(size int) WriterOption {
	return func(w *GraphWriter) error {
		if size < 1 {
			size = defaultChunkBatchSize
		}
		w.batchSize = size
		return nil
	}
}

// WithWriterLogger sets a custom logger.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *GraphWriter) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// NewGraphWriter creates a new GraphWriter.
func NewGraphWriter(documents storage.DocumentRepository, chunks storage.ChunkRepository, opts ...WriterOption) (*GraphWriter, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}

	w := &GraphWriter{
		documents: documents,
		chunks:    chunks,
		batchSize: defaultChunkBatchSize,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// Write persists a document together with its ordered chunks. The chunk
// sequence must be contiguous from position 1 with non-decreasing offsets;
// a violation aborts the document before anything is written. Re-writing
// the same document merges in place and trims any stale tail positions
// from a previous, longer version.
func (w *GraphWriter) Write(ctx context.Context, doc *core.Document, chunks []*core.Chunk) error {
	if err := core.ValidateChunkSequence(chunks); err != nil {
		return err
	}

	if _, err := w.documents.MergeDocuments(ctx, doc); err != nil {
		return err
	}

	// Nodes first, in bounded batches
	for start := 0; start < len(chunks); start += w.batchSize {
		end := start + w.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if _, err := w.chunks.MergeChunks(ctx, chunks[start:end]...); err != nil {
			return err
		}
	}

	if len(chunks) == 0 {
		return w.chunks.TrimPositions(ctx, doc.Id, 0)
	}

	// Then the order edges, now that every endpoint exists
	if err := w.chunks.MergeFirstEdges(ctx, core.FirstEdge{
		DocumentId: doc.Id,
		ChunkId:    chunks[0].Id,
	}); err != nil {
		return err
	}

	if len(chunks) > 1 {
		nextEdges := make([]core.NextEdge, 0, len(chunks)-1)
		for i := 0; i < len(chunks)-1; i++ {
			nextEdges = append(nextEdges, core.NextEdge{
				FromChunkId: chunks[i].Id,
				ToChunkId:   chunks[i+1].Id,
			})
		}
		if err := w.chunks.MergeNextEdges(ctx, nextEdges...); err != nil {
			return err
		}
	}

	// Drop index entries past the new end in case the document shrank
	if err := w.chunks.TrimPositions(ctx, doc.Id, len(chunks)); err != nil {
		return err
	}

	w.logger.Debug("document written",
		"document", doc.Key,
		"chunks", len(chunks))

	return nil
}
