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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyKey indicates the document Key field is empty.
	ErrEmptyKey = errors.New("document key cannot be empty")

	// ErrEmptyText indicates the chunk Text field is empty.
	ErrEmptyText = errors.New("chunk text cannot be empty")

	// ErrInvalidPosition indicates a chunk position is not positive.
	ErrInvalidPosition = errors.New("chunk position must be >= 1")

	// ErrInvalidOffset indicates a chunk offset is negative.
	ErrInvalidOffset = errors.New("chunk offset cannot be negative")

	// ErrBrokenSequence indicates a document's chunks are not contiguous
	// 1..N with non-decreasing offsets.
	ErrBrokenSequence = errors.New("chunk sequence is not contiguous")
)
