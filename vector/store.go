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

package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ontolite/ontolite/ai"
	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
)

const defaultEmbedTimeout = 30 * time.Second

// Store generates, persists and queries embeddings for documents and
// concepts. The primary store owns the vectors; the in-memory index mirrors
// them for fast queries and falls back to a primary scan on a miss.
type Store struct {
	embedder     ai.Embedder
	docs         storage.DocumentRepository
	concepts     storage.ConceptRepository
	provenance   storage.ProvenanceRepository
	index        *Index
	embedTimeout time.Duration
	logger       *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithEmbedTimeout bounds each embedding call. Expired calls are abandoned,
// not retried.
func WithEmbedTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.embedTimeout = d
		}
	}
}

// WithStoreLogger sets the store's logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a vector store over the given collaborators. The index
// starts empty; call Index().Rebuild to warm it from existing data.
func NewStore(embedder ai.Embedder, docs storage.DocumentRepository, concepts storage.ConceptRepository, provenance storage.ProvenanceRepository, opts ...StoreOption) (*Store, error) {
	if embedder == nil {
		return nil, errors.New("vector: embedder is required")
	}
	s := &Store{
		embedder:     embedder,
		docs:         docs,
		concepts:     concepts,
		provenance:   provenance,
		index:        NewIndex(docs, concepts),
		embedTimeout: defaultEmbedTimeout,
		logger:       slog.Default().With("component", "vector-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Index exposes the in-memory mirror, mainly for warm-up and tests.
func (s *Store) Index() *Index {
	return s.index
}

// EmbedDocument generates and persists the embedding for a document.
// Embedding failure leaves the vector and fingerprint empty and is logged,
// never returned: lexical ranking still works without it. Storage failures
// are returned (retryable).
func (s *Store) EmbedDocument(ctx context.Context, doc *core.Document) error {
	ectx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	vec, err := s.embedder.EmbedText(ectx, doc.EmbeddingText())
	cancel()
	if err != nil || len(vec) == 0 {
		s.logger.Warn("document embedding failed, leaving vector empty",
			"doc_id", doc.Id, "err", err)
		return nil
	}

	previous := doc.VectorFingerprint
	fp := core.NewFingerprint(s.embedder.Model(), vec)
	doc.Vector = vec
	doc.VectorFingerprint = fp.String()

	if _, err := s.docs.UpdateDocuments(ctx, doc); err != nil {
		return fmt.Errorf("persisting document vector: %w", err)
	}

	s.appendVectorEvent(ctx, doc.Id, previous, fp.String(), 1)
	s.index.Upsert(KindDocument, doc.Id, vec, doc.VectorFingerprint)
	return nil
}

// EmbedConcepts generates and persists embeddings for a batch of concepts
// belonging to one document. Failures follow the EmbedDocument policy.
func (s *Store) EmbedConcepts(ctx context.Context, docID core.ID, concepts []*core.Concept) error {
	if len(concepts) == 0 {
		return nil
	}

	texts := make([]string, len(concepts))
	for i, c := range concepts {
		texts[i] = c.EmbeddingText()
	}

	ectx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	vectors, err := s.embedder.EmbedTexts(ectx, texts)
	cancel()
	if err != nil || len(vectors) != len(concepts) {
		s.logger.Warn("concept batch embedding failed, leaving vectors empty",
			"doc_id", docID, "count", len(concepts), "err", err)
		return nil
	}

	var anyPrevious string
	for i, c := range concepts {
		if c.VectorFingerprint != "" && anyPrevious == "" {
			anyPrevious = c.VectorFingerprint
		}
		fp := core.NewFingerprint(s.embedder.Model(), vectors[i])
		c.Vector = vectors[i]
		c.VectorFingerprint = fp.String()
	}

	if _, err := s.concepts.UpdateConcepts(ctx, concepts...); err != nil {
		return fmt.Errorf("persisting concept vectors: %w", err)
	}

	s.appendVectorEvent(ctx, docID, anyPrevious, concepts[0].VectorFingerprint, len(concepts))
	for _, c := range concepts {
		s.index.Upsert(KindConcept, c.Id, c.Vector, c.VectorFingerprint)
	}
	return nil
}

// Similar returns the nearest neighbors of a stored object among objects of
// the same kind. The query object itself is excluded. Returns ErrNoVector
// when the object has no embedding.
func (s *Store) Similar(ctx context.Context, objectID core.ID, kind Kind, limit int, threshold float32) (*core.SimilarResponse, error) {
	var queryVec []float32
	switch kind {
	case KindDocument:
		doc, err := s.docs.GetDocument(ctx, objectID)
		if err != nil {
			return nil, err
		}
		queryVec = doc.Vector
	case KindConcept:
		c, err := s.concepts.GetConcept(ctx, objectID)
		if err != nil {
			return nil, err
		}
		queryVec = c.Vector
	default:
		return nil, ErrUnknownKind
	}

	if len(queryVec) == 0 {
		return nil, ErrNoVector
	}

	// Over-fetch by one so excluding the query object still fills the limit
	matches, err := s.search(ctx, kind, queryVec, limit+1, threshold)
	if err != nil {
		return nil, err
	}

	filtered := make([]core.Match, 0, len(matches))
	for _, m := range matches {
		if m.Id == objectID {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	return &core.SimilarResponse{
		QueryId:   objectID,
		QueryType: string(kind),
		Results:   filtered,
		Count:     len(filtered),
		Threshold: threshold,
	}, nil
}

// SimilarByText embeds the query text and returns the nearest neighbors of
// the given kind. Returns ErrEmbeddingFailed when the text cannot be
// embedded; callers may degrade to lexical scoring.
func (s *Store) SimilarByText(ctx context.Context, text string, kind Kind, limit int, threshold float32) (*core.SimilarResponse, error) {
	if kind != KindDocument && kind != KindConcept {
		return nil, ErrUnknownKind
	}

	ectx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	queryVec, err := s.embedder.EmbedText(ectx, text)
	cancel()
	if err != nil || len(queryVec) == 0 {
		s.logger.Warn("query embedding failed", "err", err)
		return nil, ErrEmbeddingFailed
	}

	matches, err := s.search(ctx, kind, queryVec, limit, threshold)
	if err != nil {
		return nil, err
	}

	return &core.SimilarResponse{
		QueryText: text,
		QueryType: string(kind),
		Results:   matches,
		Count:     len(matches),
		Threshold: threshold,
	}, nil
}

// search prefers the in-memory index and falls back to the primary store
// scan while the index is not ready.
func (s *Store) search(ctx context.Context, kind Kind, vector []float32, limit int, threshold float32) ([]core.Match, error) {
	if matches, ok := s.index.Search(kind, vector, limit, threshold); ok {
		return matches, nil
	}

	switch kind {
	case KindDocument:
		return s.docs.FindSimilarDocuments(ctx, vector, threshold, limit)
	case KindConcept:
		return s.concepts.FindSimilarConcepts(ctx, vector, threshold, limit)
	default:
		return nil, ErrUnknownKind
	}
}

// appendVectorEvent records vector generation in the provenance log.
// Log-only failure: the vector itself is already persisted.
func (s *Store) appendVectorEvent(ctx context.Context, docID core.ID, previousFingerprint, fingerprint string, count int) {
	eventType := core.EventVectorGenerated
	metadata := map[string]string{"count": strconv.Itoa(count)}
	if previousFingerprint != "" {
		eventType = core.EventVectorRegenerated
		metadata["previous_fingerprint"] = previousFingerprint
	}

	err := s.provenance.AppendEvent(ctx, &core.ProvenanceEvent{
		DocId:     docID,
		EventType: eventType,
		Actor:     s.embedder.Model(),
		Checksum:  fingerprint,
		Metadata:  metadata,
	})
	if err != nil {
		s.logger.Warn("failed to append vector provenance event", "doc_id", docID, "err", err)
	}
}
