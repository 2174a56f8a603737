package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/textgraph/core"
)

// Key prefixes for different data types. Record and index prefixes are
// disjoint so prefix scans never have to skip foreign entries.
const (
	documentRecordPrefix = "docrec"
	documentKeyPrefix    = "dockey"
	chunkRecordPrefix    = "chkrec"
	chunkPositionPrefix  = "chkpos"
	firstEdgePrefix      = "edgfst"
	nextEdgePrefix       = "edgnxt"
)

// makeDocumentRecordKey generates a key for a document record by ID.
func makeDocumentRecordKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentRecordPrefix, id))
}

// makeDocumentKeyIndexKey generates a key for the document-key index.
// Format: prefix:key. Lexicographic iteration yields documents ordered by key.
func makeDocumentKeyIndexKey(key string) []byte {
	return []byte(documentKeyPrefix + ":" + key)
}

// makeChunkRecordKey generates a key for a chunk record by ID.
func makeChunkRecordKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkPositionKey generates a composite key for the per-document
// position index. Format: prefix:documentID:position
func makeChunkPositionKey(documentId core.ID, position int) []byte {
	prefix := chunkPositionPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 12 // 8 bytes for documentID + 4 bytes for position
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort follows position order
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentId))
	offset += 8
	binary.BigEndian.PutUint32(buf[offset:], uint32(position))
	return buf
}

// makePartialChunkPositionKey generates a partial key for scanning a single
// document's position index. Format: prefix:documentID
func makePartialChunkPositionKey(documentId core.ID) []byte {
	prefix := chunkPositionPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for documentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentId))
	return buf
}

// positionFromKey extracts the position component from a position index key.
func positionFromKey(key []byte) int {
	return int(binary.BigEndian.Uint32(key[len(key)-4:]))
}

// makeFirstEdgeKey generates a key for a document's "first" order edge.
func makeFirstEdgeKey(documentId core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", firstEdgePrefix, documentId))
}

// makeNextEdgeKey generates a key for a chunk's "next" order edge.
func makeNextEdgeKey(chunkId core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", nextEdgePrefix, chunkId))
}
