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


// Package chunk splits raw document text into overlapping, boundary-aware
// segments suitable for embedding and retrieval.
//
// Large documents are first pre-split into coarse segments along paragraph
// breaks, then each coarse segment is covered by fixed-size sliding windows.
// When sentence preservation is enabled, window edges are adjusted so that a
// sentence never straddles two windows without appearing intact in one of
// them, which keeps substring and semantic matching reliable across chunk
// boundaries.
package chunk
