package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/textgraph/ai"
	"github.com/poiesic/textgraph/chunk"
	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
)

// Pipeline orchestrates the ingestion of documents: chunking, embedding,
// and graph writing. Batch ingestion runs documents concurrently on a
// bounded worker pool.
type Pipeline struct {
	chunker  *chunk.Chunker
	embedder ai.Embedder
	writer   *GraphWriter
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent document ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunker sets a custom chunker.
func WithChunker(chunker *chunk.Chunker) Option {
	return func(p *Pipeline) error {
		if chunker != nil {
			p.chunker = chunker
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunker:  chunk.New(),
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	writer, err := NewGraphWriter(documents, chunks, WithWriterLogger(p.logger))
	if err != nil {
		p.Release()
		return nil, err
	}
	p.writer = writer

	return p, nil
}

// IngestOptions holds optional document attributes for ingestion.
type IngestOptions struct {
	Type       string
	Domain     string
	SourcePath string
	Metadata   map[string]string
}

// Document is one unit of work for batch ingestion.
type Document struct {
	Key     string
	Text    string
	Options *IngestOptions
}

// Ingest chunks, embeds, and writes a single document. The key is the
// document's stable identity; re-ingesting the same key merges in place.
// An embedding failure is logged and the chunks are stored without
// vectors, leaving them reachable by lexical search.
func (p *Pipeline) Ingest(ctx context.Context, key, text string, opts *IngestOptions) (*core.Document, error) {
	if key == "" {
		return nil, ErrEmptyDocumentKey
	}
	if opts == nil {
		opts = &IngestOptions{}
	}

	doc := core.NewDocument(key, opts.Type, opts.Domain, opts.SourcePath)
	doc.Metadata = opts.Metadata

	segments := p.chunker.Chunk(text)

	chunks := make([]*core.Chunk, len(segments))
	texts := make([]string, len(segments))
	for i, segment := range segments {
		chunks[i] = core.NewChunk(doc.Id, i+1, segment.Offset, segment.Text)
		texts[i] = segment.Text
	}

	if len(texts) > 0 {
		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			p.logger.Warn("embedding failed, storing chunks without vectors",
				"document", key,
				"err", err)
		} else {
			for i, vector := range vectors {
				chunks[i].Vector = vector
			}
		}
	}

	if err := p.writer.Write(ctx, doc, chunks); err != nil {
		return nil, err
	}

	p.logger.Info("document ingested",
		"document", key,
		"chunks", len(chunks))

	return doc, nil
}

// IngestDocuments ingests a batch of documents concurrently. A failure in
// one document is logged and recorded but does not stop the others.
// Returns the documents that were written and the first error encountered,
// if any.
func (p *Pipeline) IngestDocuments(ctx context.Context, docs []Document) ([]*core.Document, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		written  []*core.Document
		firstErr error
	)

	for _, d := range docs {
		doc := d
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			result, err := p.Ingest(ctx, doc.Key, doc.Text, doc.Options)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Error("document ingestion failed",
					"document", doc.Key,
					"err", err)
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			written = append(written, result)
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	return written, firstErr
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
