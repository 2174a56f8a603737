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

// Package search provides strategy-driven retrieval over chunked documents.
//
// The Searcher type runs one or both of two search branches and fuses their
// results into a single ranking:
//   - Vector search using embedding similarity
//   - Lexical search using case-insensitive substring matching with a
//     stop-word-filtered heuristic for weaker matches
//
// Strategies are named configurations selecting the branches to run and
// whether vector hits are expanded with their document-order neighbors.
// Fused results pass through a normalize, sort, deduplicate, quality-filter,
// truncate pipeline so scores from different branches rank on one scale.
package search
