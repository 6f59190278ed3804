package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ontolite/ontolite/ai"
	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
)

// BatchProcessor regenerates vectors for batches of documents and concepts,
// rotating their fingerprints and recording the change in the provenance log.
type BatchProcessor struct {
	documents      storage.DocumentRepository
	concepts       storage.ConceptRepository
	provenance     storage.ProvenanceRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(
	documents storage.DocumentRepository,
	concepts storage.ConceptRepository,
	provenance storage.ProvenanceRepository,
	embedder ai.Embedder,
	maxRetries int,
	retryBaseDelay time.Duration,
) *BatchProcessor {
	return &BatchProcessor{
		documents:      documents,
		concepts:       concepts,
		provenance:     provenance,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         slog.Default().With("component", "reembed"),
	}
}

// ProcessDocuments regenerates vectors for a batch of documents.
func (bp *BatchProcessor) ProcessDocuments(ctx context.Context, docs []*core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.EmbeddingText()
	}

	embeddings, err := bp.embedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(docs), len(embeddings))
	}

	previous := make([]string, len(docs))
	for i, doc := range docs {
		previous[i] = doc.VectorFingerprint
		doc.Vector = embeddings[i]
		doc.VectorFingerprint = core.NewFingerprint(bp.embedder.Model(), embeddings[i]).String()
	}

	if _, err := bp.documents.UpdateDocuments(ctx, docs...); err != nil {
		return fmt.Errorf("failed to update documents: %w", err)
	}

	for i, doc := range docs {
		bp.appendEvent(ctx, doc.Id, previous[i], doc.VectorFingerprint, 1)
	}

	return nil
}

// ProcessConcepts regenerates vectors for a batch of concepts. The batch may
// span documents; one provenance event is recorded per affected document.
func (bp *BatchProcessor) ProcessConcepts(ctx context.Context, concepts []*core.Concept) error {
	if len(concepts) == 0 {
		return nil
	}

	texts := make([]string, len(concepts))
	for i, c := range concepts {
		texts[i] = c.EmbeddingText()
	}

	embeddings, err := bp.embedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(concepts) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(concepts), len(embeddings))
	}

	perDoc := make(map[core.ID]int)
	previous := make(map[core.ID]string)
	for i, c := range concepts {
		if previous[c.DocId] == "" {
			previous[c.DocId] = c.VectorFingerprint
		}
		c.Vector = embeddings[i]
		c.VectorFingerprint = core.NewFingerprint(bp.embedder.Model(), embeddings[i]).String()
		perDoc[c.DocId]++
	}

	if _, err := bp.concepts.UpdateConcepts(ctx, concepts...); err != nil {
		return fmt.Errorf("failed to update concepts: %w", err)
	}

	fingerprint := concepts[0].VectorFingerprint
	for docID, count := range perDoc {
		bp.appendEvent(ctx, docID, previous[docID], fingerprint, count)
	}

	return nil
}

// embedTexts calls the embedder with retry and exponential backoff.
func (bp *BatchProcessor) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}
	return embeddings, nil
}

// appendEvent records a vector rotation in the provenance log. A missing
// audit entry is logged, not fatal: the vectors are already persisted.
func (bp *BatchProcessor) appendEvent(ctx context.Context, docID core.ID, previousFingerprint, fingerprint string, count int) {
	eventType := core.EventVectorGenerated
	metadata := map[string]string{
		"count": strconv.Itoa(count),
	}
	if previousFingerprint != "" {
		eventType = core.EventVectorRegenerated
		metadata["previous_fingerprint"] = previousFingerprint
	}

	event := &core.ProvenanceEvent{
		DocId:     docID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Actor:     bp.embedder.Model(),
		Checksum:  fingerprint,
		Metadata:  metadata,
	}
	if err := bp.provenance.AppendEvent(ctx, event); err != nil {
		bp.logger.Warn("failed to record reembed event", "doc_id", docID, "err", err)
	}
}
