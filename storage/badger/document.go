package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	return &DocumentRepository{
		backend: backend,
	}, nil
}

// Close releases resources. DocumentRepository has no resources to release.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// MergeDocuments creates or updates documents by their key-derived IDs.
// Existing documents keep their InsertedAt timestamp.
func (r *DocumentRepository) MergeDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		// Truncated to the precision the record format persists, so a
		// re-read compares equal to the value returned here
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, doc := range docs {
			if doc.Id == 0 {
				doc.Id = core.IDFromContent(doc.Key)
			}
			if err := core.ValidateDocument(doc); err != nil {
				return err
			}

			key := makeDocumentRecordKey(doc.Id)

			old, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				doc.InsertedAt = old.InsertedAt
			} else {
				doc.InsertedAt = now
			}
			doc.UpdatedAt = now

			value := storage.MarshalDocument(doc)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Key index; the ID is key-derived so the entry is stable
			keyIndexKey := makeDocumentKeyIndexKey(doc.Key)
			if err := tx.Set(keyIndexKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})

	return docs, err
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentRecordKey(id)
		var err error
		result, err = readDocument(tx, key)
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

// GetDocumentByKey retrieves a document by its stable key.
func (r *DocumentRepository) GetDocumentByKey(ctx context.Context, docKey string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKeyIndexKey(docKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var docID core.ID
		err = item.Value(func(val []byte) error {
			docID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readDocument(tx, makeDocumentRecordKey(docID))
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

// ListDocuments retrieves all documents, ordered by key.
func (r *DocumentRepository) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Walk the key index so results come out in key order
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentKeyPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var docID core.ID
			err := item.Value(func(val []byte) error {
				var err error
				docID, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			doc, err := readDocument(tx, makeDocumentRecordKey(docID))
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)

	return results, err
}

// DeleteDocuments removes documents by their IDs, together with their
// position index entries and order edges. Chunk records are left in place
// as their content hash may be shared with other documents.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeDocumentRecordKey(id)

			doc, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if doc == nil {
				return storage.ErrNotFound
			}

			if err := deleteDocumentOrder(tx, id); err != nil {
				return err
			}

			if err := tx.Delete(makeDocumentKeyIndexKey(doc.Key)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// deleteDocumentOrder removes a document's position index entries, its
// "first" edge, and the "next" edges of its chunks.
func deleteDocumentOrder(tx *badger.Txn, documentId core.ID) error {
	var positionKeys [][]byte
	var chunkIDs []core.ID

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkPositionKey(documentId)
	iter := tx.NewIterator(opts)

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		positionKeys = append(positionKeys, item.KeyCopy(nil))

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
		chunkIDs = append(chunkIDs, chunkID)
	}
	iter.Close()

	for _, posKey := range positionKeys {
		if err := tx.Delete(posKey); err != nil {
			return err
		}
	}
	for _, chunkID := range chunkIDs {
		if err := tx.Delete(makeNextEdgeKey(chunkID)); err != nil {
			return err
		}
	}
	return tx.Delete(makeFirstEdgeKey(documentId))
}

// readDocument reads a document from the transaction.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}
