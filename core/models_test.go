package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := IDFromContent("the same text")
		b := IDFromContent("the same text")
		assert.Equal(t, a, b)
	})

	t.Run("distinct content distinct ids", func(t *testing.T) {
		a := IDFromContent("one text")
		b := IDFromContent("another text")
		assert.NotEqual(t, a, b)
	})

	t.Run("empty content has an id", func(t *testing.T) {
		assert.NotZero(t, IDFromContent(""))
	})
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument("notes/alpha.txt", "text", "notes", "/srv/notes/alpha.txt")

	assert.Equal(t, IDFromContent("notes/alpha.txt"), doc.Id)
	assert.Equal(t, "notes/alpha.txt", doc.Key)
	assert.Equal(t, "text", doc.Type)
	assert.Equal(t, "notes", doc.Domain)
	assert.Equal(t, "/srv/notes/alpha.txt", doc.SourcePath)
}

func TestNewChunk(t *testing.T) {
	docID := IDFromContent("doc")
	chunk := NewChunk(docID, 3, 120, "three words here")

	assert.Equal(t, IDFromContent("three words here"), chunk.Id)
	assert.Equal(t, docID, chunk.DocumentId)
	assert.Equal(t, 3, chunk.Position)
	assert.Equal(t, 120, chunk.Offset)
	assert.Equal(t, len("three words here"), chunk.Length)
	assert.Equal(t, 3, chunk.TokenCount)
}

func TestChunkIdentityIdempotent(t *testing.T) {
	// Chunks built from identical text have identical identities even
	// across documents and positions.
	a := NewChunk(IDFromContent("doc-a"), 1, 0, "shared passage")
	b := NewChunk(IDFromContent("doc-b"), 7, 900, "shared passage")

	require.Equal(t, a.Id, b.Id)
	assert.NotEqual(t, a.DocumentId, b.DocumentId)
}
