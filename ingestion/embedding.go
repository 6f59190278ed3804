package ingestion

import (
	"context"
	"log/slog"

	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
	"github.com/ontolite/ontolite/vector"
)

// embeddingProcessor generates vectors for a document and its concept tree.
type embeddingProcessor struct {
	documentRepository storage.DocumentRepository
	conceptRepository  storage.ConceptRepository
	store              *vector.Store
	logger             *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(
	documentRepository storage.DocumentRepository,
	conceptRepository storage.ConceptRepository,
	store *vector.Store,
	logger *slog.Logger,
) (processor, error) {
	if documentRepository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if conceptRepository == nil {
		return nil, ErrConceptRepositoryRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		documentRepository: documentRepository,
		conceptRepository:  conceptRepository,
		store:              store,
		logger:             logger.With("processor", "embeddings"),
	}, nil
}

// process embeds the document and every concept in its tree. Embedding
// failures are absorbed by the vector store and left for a later re-embed
// pass; only storage errors surface here.
func (ep *embeddingProcessor) process(ctx context.Context, docID core.ID) error {
	doc, err := ep.documentRepository.GetDocument(ctx, docID)
	if err != nil {
		return err
	}

	if err := ep.store.EmbedDocument(ctx, doc); err != nil {
		return err
	}

	concepts, err := ep.conceptRepository.GetConceptsByDocument(ctx, docID)
	if err != nil {
		return err
	}
	if len(concepts) == 0 {
		return nil
	}

	return ep.store.EmbedConcepts(ctx, docID, concepts)
}
