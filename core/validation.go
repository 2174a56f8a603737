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


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Key must not be empty
//   - Id must match IDFromContent(Key)
//
// NOT validated:
//   - Type, Domain, SourcePath, Metadata (optional attributes)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyKey)
	}

	if doc.Id != IDFromContent(doc.Key) {
		return fmt.Errorf("%w: id does not match key hash", ErrInvalidDocument)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Position must be >= 1
//   - Offset must be >= 0
//   - Id must match IDFromContent(Text)
//
// NOT validated (populated by processors):
//   - Vector (can be empty until the embedding step runs)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	if chunk.Position < 1 {
		return fmt.Errorf("%w: %w: position %d", ErrInvalidChunk, ErrInvalidPosition, chunk.Position)
	}

	if chunk.Offset < 0 {
		return fmt.Errorf("%w: %w: offset %d", ErrInvalidChunk, ErrInvalidOffset, chunk.Offset)
	}

	if chunk.Id != IDFromContent(chunk.Text) {
		return fmt.Errorf("%w: id does not match content hash", ErrInvalidChunk)
	}

	return nil
}

// ValidateChunkSequence validates that chunks form a contiguous 1..N sequence
// with monotonically non-decreasing offsets. The slice must be ordered by
// position, which is how the chunker emits it.
func ValidateChunkSequence(chunks []*Chunk) error {
	lastOffset := -1
	for i, chunk := range chunks {
		if err := ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.Position != i+1 {
			return fmt.Errorf("%w: position %d at index %d", ErrBrokenSequence, chunk.Position, i)
		}
		if chunk.Offset < lastOffset {
			return fmt.Errorf("%w: offset %d decreases at position %d", ErrBrokenSequence, chunk.Offset, chunk.Position)
		}
		lastOffset = chunk.Offset
	}
	return nil
}
