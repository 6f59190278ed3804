package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
)

const (
	// Engagement blend: recent activity dominates, raw event volume refines.
	recencyWeight   = 0.7
	frequencyWeight = 0.3

	// frequencySaturation is the event count at which the frequency term
	// maxes out.
	frequencySaturation = 20

	// recencyHalfWindow controls how fast the recency term decays.
	recencyHalfWindow = 30 * 24 * time.Hour
)

// EngagementRanker orders documents when there is no query text to rank
// against. It is a separate ranking source, not a degenerate case of the
// fusion formula.
type EngagementRanker interface {
	// Rank returns up to limit documents ordered by engagement,
	// most engaging first.
	Rank(ctx context.Context, limit int) ([]*core.SearchResult, error)
}

// engagementRanker is the default implementation: recency of last update
// blended with provenance event frequency.
type engagementRanker struct {
	docs       storage.DocumentRepository
	provenance storage.ProvenanceRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewEngagementRanker creates the default recency/frequency ranker.
func NewEngagementRanker(docs storage.DocumentRepository, provenance storage.ProvenanceRepository) EngagementRanker {
	return &engagementRanker{
		docs:       docs,
		provenance: provenance,
		logger:     slog.Default().With("component", "engagement-ranker"),
		now:        time.Now,
	}
}

func (r *engagementRanker) Rank(ctx context.Context, limit int) ([]*core.SearchResult, error) {
	docs, err := r.docs.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	results := make([]*core.SearchResult, 0, len(docs))
	for _, doc := range docs {
		age := now.Sub(doc.UpdatedAt)
		if age < 0 {
			age = 0
		}
		recency := math.Exp(-float64(age) / float64(recencyHalfWindow))

		events, err := r.provenance.CountEventsByDocument(ctx, doc.Id)
		if err != nil {
			// Count failure degrades to recency-only for this document
			r.logger.Warn("failed to count events", "doc_id", doc.Id, "err", err)
			events = 0
		}
		frequency := math.Min(float64(events)/frequencySaturation, 1.0)

		score := recencyWeight*recency + frequencyWeight*frequency
		results = append(results, &core.SearchResult{
			DocId:     doc.Id,
			Title:     doc.Title,
			Score:     score,
			MatchType: "engagement",
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocId < results[j].DocId
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
