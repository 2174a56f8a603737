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

package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	return &ChunkRepository{
		backend: backend,
	}, nil
}

// Close releases resources. ChunkRepository has no resources to release.
func (r *ChunkRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ChunkMatch, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// ScanChunks delegates to the backend.
func (r *ChunkRepository) ScanChunks(ctx context.Context, fn func(chunk *core.Chunk) (bool, error)) error {
	return r.backend.ScanChunks(ctx, fn)
}

// MergeChunks creates or updates chunks by their content-derived IDs and
// writes the position index entry recording membership and order.
// Existing chunks keep their InsertedAt timestamp; an existing embedding is
// kept when the incoming chunk carries none.
func (r *ChunkRepository) MergeChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	err := r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		// Truncated to the precision the record format persists, so a
		// re-read compares equal to the value returned here
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, chunk := range chunks {
			if chunk.Id == 0 {
				chunk.Id = core.IDFromContent(chunk.Text)
			}
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}

			key := makeChunkRecordKey(chunk.Id)

			old, err := readChunk(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				chunk.InsertedAt = old.InsertedAt
				if len(chunk.Vector) == 0 {
					chunk.Vector = old.Vector
				}
			} else {
				chunk.InsertedAt = now
			}
			chunk.UpdatedAt = now

			value := storage.MarshalChunk(chunk)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Position index entry carries the order relation
			posKey := makeChunkPositionKey(chunk.DocumentId, chunk.Position)
			if err := tx.Set(posKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})

	return chunks, err
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunk(tx, makeChunkRecordKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunks retrieves multiple chunks by their IDs. Missing chunks are
// silently skipped.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, makeChunkRecordKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				result = append(result, chunk)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetDocumentChunks retrieves all chunks of a document in position order.
func (r *ChunkRepository) GetDocumentChunks(ctx context.Context, documentId core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkPositionKey(documentId)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// BigEndian position keys iterate in position order
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var chunkID core.ID
			err := item.Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			chunk, err := readChunk(tx, makeChunkRecordKey(chunkID))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetChunkAt retrieves the chunk at a 1-based position within a document.
func (r *ChunkRepository) GetChunkAt(ctx context.Context, documentId core.ID, position int) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeChunkPositionKey(documentId, position))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var chunkID core.ID
		err = item.Value(func(val []byte) error {
			chunkID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readChunk(tx, makeChunkRecordKey(chunkID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// MergeFirstEdges creates or updates document-to-first-chunk order edges.
func (r *ChunkRepository) MergeFirstEdges(ctx context.Context, edges ...core.FirstEdge) error {
	return r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		for _, edge := range edges {
			if err := verifyChunkExists(tx, edge.ChunkId); err != nil {
				return err
			}
			key := makeFirstEdgeKey(edge.DocumentId)
			if err := tx.Set(key, storage.MarshalID(edge.ChunkId)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// MergeNextEdges creates or updates chunk-to-chunk order edges.
func (r *ChunkRepository) MergeNextEdges(ctx context.Context, edges ...core.NextEdge) error {
	return r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		for _, edge := range edges {
			if err := verifyChunkExists(tx, edge.FromChunkId); err != nil {
				return err
			}
			if err := verifyChunkExists(tx, edge.ToChunkId); err != nil {
				return err
			}
			key := makeNextEdgeKey(edge.FromChunkId)
			if err := tx.Set(key, storage.MarshalID(edge.ToChunkId)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// FirstChunkID returns the target of a document's "first" edge.
func (r *ChunkRepository) FirstChunkID(ctx context.Context, documentId core.ID) (core.ID, error) {
	return r.readEdgeTarget(makeFirstEdgeKey(documentId))
}

// NextChunkID returns the target of a chunk's "next" edge.
func (r *ChunkRepository) NextChunkID(ctx context.Context, chunkId core.ID) (core.ID, error) {
	return r.readEdgeTarget(makeNextEdgeKey(chunkId))
}

// TrimPositions removes position index entries and order edges past
// maxPosition for a document. A maxPosition of 0 removes the whole order,
// including the "first" edge.
func (r *ChunkRepository) TrimPositions(ctx context.Context, documentId core.ID, maxPosition int) error {
	return r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		var staleKeys [][]byte
		var staleChunkIDs []core.ID

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkPositionKey(documentId)
		iter := tx.NewIterator(opts)

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			if positionFromKey(item.Key()) <= maxPosition {
				continue
			}
			staleKeys = append(staleKeys, item.KeyCopy(nil))

			var chunkID core.ID
			err := item.Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				iter.Close()
				return err
			}
			staleChunkIDs = append(staleChunkIDs, chunkID)
		}
		iter.Close()

		for _, key := range staleKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		for _, chunkID := range staleChunkIDs {
			if err := tx.Delete(makeNextEdgeKey(chunkID)); err != nil {
				return err
			}
		}

		if maxPosition <= 0 {
			if err := tx.Delete(makeFirstEdgeKey(documentId)); err != nil {
				return err
			}
		} else if len(staleChunkIDs) > 0 {
			// The new last chunk must not point past the end of the chain
			item, err := tx.Get(makeChunkPositionKey(documentId, maxPosition))
			if err == nil {
				var lastID core.ID
				err = item.Value(func(val []byte) error {
					lastID, err = storage.UnmarshalID(val)
					return err
				})
				if err != nil {
					return err
				}
				if err := tx.Delete(makeNextEdgeKey(lastID)); err != nil {
					return err
				}
			} else if err != badger.ErrKeyNotFound {
				return err
			}
		}

		return tx.Commit()
	})
}

// Helper methods

func (r *ChunkRepository) readEdgeTarget(key []byte) (core.ID, error) {
	var target core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			target, err = storage.UnmarshalID(val)
			return err
		})
	}, false)
	return target, err
}

// verifyChunkExists checks that a chunk record is present before an edge
// referencing it is written.
func verifyChunkExists(tx *badger.Txn, id core.ID) error {
	_, err := tx.Get(makeChunkRecordKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return storage.ErrMissingEndpoint
		}
		return err
	}
	return nil
}

// readChunk reads a chunk from the transaction.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}
