package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/hierarchy"
	"github.com/ontolite/ontolite/storage"
)

// hierarchyProcessor rebuilds a document's concept tree from its leaf
// concepts and structural relations.
type hierarchyProcessor struct {
	conceptRepository  storage.ConceptRepository
	relationRepository storage.RelationRepository
	provenance         storage.ProvenanceRepository
	builder            *hierarchy.Builder
	logger             *slog.Logger
}

var _ processor = (*hierarchyProcessor)(nil)

func newHierarchyProcessor(
	conceptRepository storage.ConceptRepository,
	relationRepository storage.RelationRepository,
	provenance storage.ProvenanceRepository,
	builder *hierarchy.Builder,
	logger *slog.Logger,
) (processor, error) {
	if conceptRepository == nil {
		return nil, ErrConceptRepositoryRequired
	}
	if relationRepository == nil {
		return nil, ErrRelationRepositoryRequired
	}
	if provenance == nil {
		return nil, ErrProvenanceRepositoryRequired
	}
	if builder == nil {
		return nil, ErrBuilderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &hierarchyProcessor{
		conceptRepository:  conceptRepository,
		relationRepository: relationRepository,
		provenance:         provenance,
		builder:            builder,
		logger:             logger.With("processor", "hierarchy"),
	}, nil
}

// process rebuilds the tree for one document. Synthetic nodes from a
// previous build are discarded so repeated runs start from the same leaf
// set and stay idempotent.
func (hp *hierarchyProcessor) process(ctx context.Context, docID core.ID) error {
	concepts, err := hp.conceptRepository.GetConceptsByDocument(ctx, docID)
	if err != nil {
		return err
	}

	leaves := make([]*core.Concept, 0, len(concepts))
	for _, c := range concepts {
		if !c.Synthetic() {
			leaves = append(leaves, c)
		}
	}
	if len(leaves) == 0 {
		hp.logger.Debug("no concepts to organize", "doc_id", docID)
		return nil
	}

	relations, err := hp.relationRepository.GetRelationsByDocument(ctx, docID)
	if err != nil {
		return err
	}

	result, err := hp.builder.Build(ctx, docID, leaves, relations)
	if err != nil {
		return err
	}

	if err := hp.conceptRepository.SwapHierarchy(ctx, docID, result.Concepts); err != nil {
		return fmt.Errorf("swapping hierarchy for document %d: %w", docID, err)
	}

	hp.logger.Info("hierarchy built",
		"doc_id", docID,
		"clusters", result.Stats.Clusters,
		"refinements", result.Stats.Refinements,
		"orphans", result.Stats.Orphans)

	event := &core.ProvenanceEvent{
		DocId:     docID,
		EventType: core.EventHierarchyBuilt,
		Timestamp: time.Now().UTC(),
		Actor:     "hierarchy-builder",
		Checksum:  conceptSetChecksum(result.Concepts),
		Metadata: map[string]string{
			"clusters":    strconv.Itoa(result.Stats.Clusters),
			"refinements": strconv.Itoa(result.Stats.Refinements),
			"orphans":     strconv.Itoa(result.Stats.Orphans),
		},
	}
	if err := hp.provenance.AppendEvent(ctx, event); err != nil {
		// The tree is already swapped; a missing audit entry is not worth
		// failing the build over
		hp.logger.Warn("failed to record hierarchy event", "doc_id", docID, "err", err)
	}

	return nil
}

// conceptSetChecksum digests the IDs of a concept set into a stable hex
// string, independent of slice order.
func conceptSetChecksum(concepts []*core.Concept) string {
	ids := make([]uint64, len(concepts))
	for i, c := range concepts {
		ids[i] = uint64(c.Id)
	}
	slices.Sort(ids)

	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(strconv.FormatUint(id, 16))
		sb.WriteByte(',')
	}
	return fmt.Sprintf("%016x", uint64(core.IDFromContent(sb.String())))
}
