package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/textgraph/ai"
	"github.com/poiesic/textgraph/retry"
)

// defaultTTL is how long cached vectors stay valid.
const defaultTTL = 15 * time.Minute

// CachedEmbedder wraps a raw ai.Embedder with a TTL cache and a retry
// policy. It implements ai.Embedder itself, so callers depend on the same
// interface whether or not caching is in front of the provider.
type CachedEmbedder struct {
	provider ai.Embedder
	cache    *Cache
	policy   retry.Policy
	logger   *slog.Logger
}

var _ ai.Embedder = (*CachedEmbedder)(nil)

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder) error

// WithTTL sets the cache entry lifetime.
// Default is 15 minutes.
func WithTTL(ttl time.Duration) Option {
	return func(e *CachedEmbedder) error {
		if ttl <= 0 {
			return fmt.Errorf("ttl must be positive, got %s", ttl)
		}
		e.cache = NewCache(ttl)
		return nil
	}
}

// WithRetryPolicy sets the retry policy for provider calls.
// Default is retry.DefaultPolicy().
func WithRetryPolicy(policy retry.Policy) Option {
	return func(e *CachedEmbedder) error {
		if policy.MaxAttempts <= 0 {
			return retry.ErrInvalidMaxAttempts
		}
		e.policy = policy
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *CachedEmbedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewCachedEmbedder creates a caching, retrying wrapper around provider.
func NewCachedEmbedder(provider ai.Embedder, opts ...Option) (*CachedEmbedder, error) {
	if provider == nil {
		return nil, ErrEmbedderRequired
	}

	e := &CachedEmbedder{
		provider: provider,
		cache:    NewCache(defaultTTL),
		policy:   retry.DefaultPolicy(),
		logger:   slog.Default().With("component", "cached-embedder"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// EmbedText returns the embedding for a single text, consulting the cache
// first. On a miss the provider is called with bounded retries and the
// result is cached before returning.
func (e *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := e.cache.Get(text); ok {
		return vector, nil
	}

	var vector []float32
	err := e.policy.Do(ctx, func() error {
		var err error
		vector, err = e.provider.EmbedText(ctx, text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, err)
	}

	e.cache.Put(text, vector)
	return vector, nil
}

// EmbedTexts returns embeddings for all texts in input order. Inputs are
// partitioned into cached and uncached; the uncached subset is sent to the
// provider in a single batch call, and results are written back into the
// cache and into the correct output positions.
func (e *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var uncached []string
	var positions []int
	for i, text := range texts {
		if vector, ok := e.cache.Get(text); ok {
			vectors[i] = vector
			continue
		}
		uncached = append(uncached, text)
		positions = append(positions, i)
	}

	if len(uncached) == 0 {
		return vectors, nil
	}

	e.logger.Debug("embedding uncached texts", "total", len(texts), "uncached", len(uncached))

	var fresh [][]float32
	err := e.policy.Do(ctx, func() error {
		var err error
		fresh, err = e.provider.EmbedTexts(ctx, uncached)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, err)
	}

	if len(fresh) != len(uncached) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrResultMismatch, len(uncached), len(fresh))
	}

	for i, vector := range fresh {
		e.cache.Put(uncached[i], vector)
		vectors[positions[i]] = vector
	}

	return vectors, nil
}

// CacheLen returns the number of cached entries.
func (e *CachedEmbedder) CacheLen() int {
	return e.cache.Len()
}

// ResetCache clears all cached vectors.
func (e *CachedEmbedder) ResetCache() {
	e.cache.Reset()
}
