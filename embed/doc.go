// Package embed turns a raw embedding provider into a cached, retrying,
// batch-capable service.
//
// The CachedEmbedder wraps any ai.Embedder with:
//   - a TTL cache keyed by a content digest of the input text
//   - bounded retries with configurable delay between attempts
//   - order-preserving batch embedding that only sends cache misses
//     to the provider
//
// Callers that cannot tolerate embedding failure (query-time vectorization)
// receive the provider error after retries are exhausted and decide their
// own fallback; ingestion callers typically store the affected chunk without
// a vector rather than aborting the batch.
package embed
