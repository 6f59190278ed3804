// Copyright 2025 Ontolite Authors
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

package ontolite

import (
	"context"
	"io"
	"log/slog"

	"github.com/ontolite/ontolite/ai"
	"github.com/ontolite/ontolite/ai/openai"
	"github.com/ontolite/ontolite/hierarchy"
	"github.com/ontolite/ontolite/ingestion"
	"github.com/ontolite/ontolite/reembed"
	"github.com/ontolite/ontolite/search"
	"github.com/ontolite/ontolite/storage"
	"github.com/ontolite/ontolite/storage/badger"
	"github.com/ontolite/ontolite/vector"
)

// Database is the top-level handle over an ontology store: repositories,
// AI services, the vector store, and factories for the pipeline, the
// search engine, and the reembedder.
type Database struct {
	stores   *badger.Stores
	provider ai.Provider
	store    *vector.Store
	builder  *hierarchy.Builder
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	inMemory bool
}

// WithAIConfig sets the AI service configuration used to construct the
// default OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider supplies a pre-built AI provider, bypassing the default
// OpenAI-compatible one. Useful for tests.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory opens the storage backend in memory, discarding all data on
// close.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens (or creates) an ontology database at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	stores, err := newStores(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			stores.Close()
			return nil, err
		}
	}

	store, err := vector.NewStore(provider.Embedder(), stores.Documents, stores.Concepts, stores.Provenance,
		vector.WithEmbedTimeout(options.aiConfig.EmbedTimeout))
	if err != nil {
		provider.Close()
		stores.Close()
		return nil, err
	}

	builder, err := hierarchy.NewBuilder(provider.ClusterLabeler(),
		hierarchy.WithLabelTimeout(options.aiConfig.LabelTimeout))
	if err != nil {
		provider.Close()
		stores.Close()
		return nil, err
	}

	return &Database{
		stores:   stores,
		provider: provider,
		store:    store,
		builder:  builder,
		logger:   slog.Default(),
	}, nil
}

func newStores(filePath string, inMemory bool) (*badger.Stores, error) {
	if inMemory {
		return badger.NewMemoryStores()
	}
	return badger.NewStores(filePath)
}

func (db *Database) Close() error {
	// AI provider first: background work may still hold repositories
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	return db.stores.Close()
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.stores.Documents
}

func (db *Database) ConceptRepository() storage.ConceptRepository {
	return db.stores.Concepts
}

func (db *Database) RelationRepository() storage.RelationRepository {
	return db.stores.Relations
}

func (db *Database) ProvenanceRepository() storage.ProvenanceRepository {
	return db.stores.Provenance
}

// VectorStore exposes embedding generation and similarity queries.
func (db *Database) VectorStore() *vector.Store {
	return db.store
}

// RebuildIndex loads every stored vector into the in-memory search index.
// Until this has run at least once, similarity queries fall back to
// scanning the primary store.
func (db *Database) RebuildIndex(ctx context.Context) error {
	return db.store.Index().Rebuild(ctx)
}

// NewIngestionPipeline creates a pipeline bound to this database.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(
		db.stores.Documents,
		db.stores.Concepts,
		db.stores.Relations,
		db.stores.Provenance,
		db.store,
		db.builder,
		opts...,
	)
}

// NewEngine creates a hybrid search engine bound to this database.
func (db *Database) NewEngine(opts ...search.Option) (*search.Engine, error) {
	engagement := search.NewEngagementRanker(db.stores.Documents, db.stores.Provenance)
	return search.NewEngine(db.stores.Documents, db.stores.Concepts, db.store, engagement, opts...)
}

// NewReembedder creates a reembedder that rotates every stored vector with
// this database's embedder and refreshes the search index.
func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(
		db.stores.Documents,
		db.stores.Concepts,
		db.stores.Provenance,
		db.provider.Embedder(),
		db.store.Index(),
		config,
		progress,
	)
}
