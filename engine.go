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

package textgraph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/textgraph/ai"
	"github.com/poiesic/textgraph/ai/openai"
	"github.com/poiesic/textgraph/answer"
	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/embed"
	"github.com/poiesic/textgraph/ingestion"
	"github.com/poiesic/textgraph/search"
	"github.com/poiesic/textgraph/storage"
	"github.com/poiesic/textgraph/storage/badger"
)

// Engine is the top-level entry point. It owns the storage backend, the AI
// provider, and the cached embedder shared by ingestion and search.
type Engine struct {
	backend   *badger.Backend
	docRepo   storage.DocumentRepository
	chunkRepo storage.ChunkRepository
	provider  ai.Provider
	embedder  *embed.CachedEmbedder
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	inMemory bool
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider sets a pre-built AI provider, bypassing the OpenAI-compatible
// default. Used in tests with mock providers.
func WithProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithInMemoryStorage opens the storage backend in memory instead of on disk.
func WithInMemoryStorage() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// NewEngine opens the store at filePath and wires the full retrieval stack.
func NewEngine(filePath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	docRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			chunkRepo.Close()
			docRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	embedder, err := embed.NewCachedEmbedder(provider.Embedder())
	if err != nil {
		provider.Close()
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:   backend,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		provider:  provider,
		embedder:  embedder,
		logger:    slog.Default(),
	}, nil
}

// Close releases the AI provider, repositories, and the storage backend.
func (e *Engine) Close() error {
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.chunkRepo.Close(); err != nil {
		e.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := e.docRepo.Close(); err != nil {
		e.logger.Error("error closing document repository", "err", err)
		return err
	}

	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// DocumentRepository exposes the document repository.
func (e *Engine) DocumentRepository() storage.DocumentRepository {
	return e.docRepo
}

// ChunkRepository exposes the chunk repository.
func (e *Engine) ChunkRepository() storage.ChunkRepository {
	return e.chunkRepo
}

// NewPipeline creates an ingestion pipeline over the engine's store and
// cached embedder.
func (e *Engine) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(e.docRepo, e.chunkRepo, e.embedder, opts...)
}

// NewSearcher creates a searcher over the engine's store and cached embedder.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(e.chunkRepo, e.embedder, opts...)
}

// Ingest chunks, embeds, and stores a single document under the given key.
func (e *Engine) Ingest(ctx context.Context, key, text string, opts *ingestion.IngestOptions) (*core.Document, error) {
	pipeline, err := e.NewPipeline()
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()
	return pipeline.Ingest(ctx, key, text, opts)
}

// Search runs the named strategy and returns up to limit ranked results.
func (e *Engine) Search(ctx context.Context, query, strategyName string, limit int) ([]*core.SearchResult, error) {
	searcher, err := e.NewSearcher()
	if err != nil {
		return nil, err
	}
	return searcher.Search(ctx, query, strategyName, limit)
}

// ChunkText returns the exact text of a chunk by ID. A missing chunk
// returns an empty string and found=false rather than an error.
func (e *Engine) ChunkText(ctx context.Context, id core.ID) (text string, found bool, err error) {
	chunk, err := e.chunkRepo.GetChunk(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return chunk.Text, true, nil
}

// Answer searches with the given strategy and summarizes the top results
// into a natural-language answer.
func (e *Engine) Answer(ctx context.Context, question, strategyName string, limit int) (string, error) {
	results, err := e.Search(ctx, question, strategyName, limit)
	if err != nil {
		return "", err
	}

	assembler, err := answer.NewAssembler(e.provider.Summarizer())
	if err != nil {
		return "", err
	}
	return assembler.Assemble(ctx, question, results)
}
