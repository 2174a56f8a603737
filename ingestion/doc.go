// Package ingestion provides pipeline orchestration for turning raw text
// into graph-connected chunks.
//
// The Pipeline type manages the ingestion workflow for documents, including:
//   - Splitting text into overlapping, boundary-aware chunks
//   - Generating embeddings in batches
//   - Writing document and chunk nodes plus their order edges
//
// Batch ingestion is performed concurrently using a worker pool. A failure
// in one document is logged and does not fail the rest of the batch; an
// embedding failure downgrades the document's chunks to lexical-only rather
// than aborting the write.
package ingestion
