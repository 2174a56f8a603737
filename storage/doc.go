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


// Package storage provides the storage abstraction layer for textgraph.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic. It allows for different storage
// backends (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Graph shape
//
// The store holds two node kinds and three relations:
//
//   - Document nodes, identified by a key-derived content hash
//   - Chunk nodes, identified by a text-derived content hash
//   - Membership (chunk -> document), carried on the chunk record
//   - "First" order edges (document -> first chunk)
//   - "Next" order edges (chunk -> next chunk)
//
// The per-document position index is the source of truth for chunk order;
// the first/next edges are a projection of it, written separately so that
// edge creation never races against missing endpoint nodes.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces to
// enforce abstraction:
//
//	repo, err := badger.NewChunkRepository(backend)  // returns storage.ChunkRepository
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific timeout
// requirements.
package storage
