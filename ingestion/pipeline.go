package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/hierarchy"
	"github.com/ontolite/ontolite/storage"
	"github.com/ontolite/ontolite/vector"
)

// Pipeline orchestrates document ingestion: persisting the extraction,
// organizing concepts into a tree, and generating embeddings. Persistence
// is synchronous; tree construction and embedding run on worker pools.
type Pipeline struct {
	documentRepository storage.DocumentRepository
	conceptRepository  storage.ConceptRepository
	relationRepository storage.RelationRepository
	provenance         storage.ProvenanceRepository
	hierarchyPool      *ants.Pool
	embeddingPool      *ants.Pool
	hierarchyProc      processor
	embeddingProc      processor

	mu       sync.Mutex
	inFlight map[core.ID]bool

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.hierarchyPool != nil {
			p.hierarchyPool.Release()
		}
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		hierarchyPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			hierarchyPool.Release()
			return err
		}

		p.hierarchyPool = hierarchyPool
		p.embeddingPool = embeddingPool
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
	documentRepository storage.DocumentRepository,
	conceptRepository storage.ConceptRepository,
	relationRepository storage.RelationRepository,
	provenance storage.ProvenanceRepository,
	store *vector.Store,
	builder *hierarchy.Builder,
	opts ...Option,
) (*Pipeline, error) {
	if documentRepository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if conceptRepository == nil {
		return nil, ErrConceptRepositoryRequired
	}
	if relationRepository == nil {
		return nil, ErrRelationRepositoryRequired
	}
	if provenance == nil {
		return nil, ErrProvenanceRepositoryRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if builder == nil {
		return nil, ErrBuilderRequired
	}

	logger := slog.Default()

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	hierarchyPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		hierarchyPool.Release()
		return nil, err
	}

	p := &Pipeline{
		documentRepository: documentRepository,
		conceptRepository:  conceptRepository,
		relationRepository: relationRepository,
		provenance:         provenance,
		hierarchyPool:      hierarchyPool,
		embeddingPool:      embeddingPool,
		inFlight:           make(map[core.ID]bool),
		logger:             logger,
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create processors after options are applied (so they get the final config)
	hierarchyProc, err := newHierarchyProcessor(conceptRepository, relationRepository, provenance, builder, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	embeddingProc, err := newEmbeddingProcessor(documentRepository, conceptRepository, store, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	p.hierarchyProc = hierarchyProc
	p.embeddingProc = embeddingProc

	return p, nil
}

// Ingest persists a document with its extracted concepts and relations,
// then schedules tree construction and embedding in the background. The
// returned document carries its assigned ID. Errors during async
// processing are logged but do not fail the ingestion.
func (p *Pipeline) Ingest(ctx context.Context, doc *core.Document, concepts []*core.Concept, relations []*core.Relation) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	added, err := p.documentRepository.AddDocuments(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc = added[0]

	concepts, relations = core.SanitizeExtraction(doc.Id, concepts, relations)

	if len(concepts) > 0 {
		if _, err := p.conceptRepository.AddConcepts(ctx, concepts...); err != nil {
			return nil, fmt.Errorf("persisting concepts for document %d: %w", doc.Id, err)
		}
	}
	if len(relations) > 0 {
		if _, err := p.relationRepository.AddRelations(ctx, relations...); err != nil {
			return nil, fmt.Errorf("persisting relations for document %d: %w", doc.Id, err)
		}
	}

	event := &core.ProvenanceEvent{
		DocId:     doc.Id,
		EventType: core.EventDocumentIngested,
		Timestamp: time.Now().UTC(),
		Actor:     "ingestion",
		Checksum:  fmt.Sprintf("%016x", uint64(core.IDFromContent(doc.EmbeddingText()))),
		Metadata: map[string]string{
			"concepts":  strconv.Itoa(len(concepts)),
			"relations": strconv.Itoa(len(relations)),
		},
	}
	if err := p.provenance.AppendEvent(ctx, event); err != nil {
		// The document is persisted; the audit trail is best-effort
		p.logger.Warn("failed to record ingestion event", "doc_id", doc.Id, "err", err)
	}

	p.schedule(doc.Id)
	return doc, nil
}

// Rebuild re-runs tree construction and embedding for an already-persisted
// document. Scheduling is best-effort: if the document is mid-processing
// the request is dropped.
func (p *Pipeline) Rebuild(ctx context.Context, docID core.ID) error {
	if _, err := p.documentRepository.GetDocument(ctx, docID); err != nil {
		return err
	}
	p.schedule(docID)
	return nil
}

// schedule submits the hierarchy-then-embedding chain for one document.
// At most one chain runs per document at a time; a second request while
// the first is still running is dropped.
func (p *Pipeline) schedule(docID core.ID) {
	if !p.acquire(docID) {
		p.logger.Debug("document already processing, skipping", "doc_id", docID)
		return
	}

	err := p.hierarchyPool.Submit(func() {
		ctx := context.Background()

		if err := p.hierarchyProc.process(ctx, docID); err != nil {
			p.logger.Error("error building hierarchy", "doc_id", docID, "err", err)
			p.release(docID)
			return
		}

		// Embedding runs after the swap so synthetic nodes get vectors too
		if err := p.embeddingPool.Submit(func() {
			defer p.release(docID)
			if err := p.embeddingProc.process(context.Background(), docID); err != nil {
				p.logger.Error("error generating embeddings", "doc_id", docID, "err", err)
			}
		}); err != nil {
			p.logger.Error("error submitting embedding job", "doc_id", docID, "err", err)
			p.release(docID)
		}
	})
	if err != nil {
		p.logger.Error("error submitting hierarchy job", "doc_id", docID, "err", err)
		p.release(docID)
	}
}

func (p *Pipeline) acquire(docID core.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[docID] {
		return false
	}
	p.inFlight[docID] = true
	return true
}

func (p *Pipeline) release(docID core.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, docID)
}

// Processing reports whether a document still has background work pending.
func (p *Pipeline) Processing(docID core.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight[docID]
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.hierarchyPool != nil {
		p.hierarchyPool.Release()
	}
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
