package search

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
	"github.com/ontolite/ontolite/vector"
)

const (
	// DefaultThreshold is the minimum fused score for a document to appear
	// in results. The cut is hard: sub-threshold documents are absent from
	// both Results and DocumentScores.
	DefaultThreshold = 0.15

	// DefaultTopResults is the shortlist size.
	DefaultTopResults = 6

	// Reference fusion weighting. Concept weight is deliberately the
	// smallest: it is the noisiest signal and largely redundant with title.
	defaultTitleWeight    = 0.4
	defaultConceptWeight  = 0.2
	defaultSemanticWeight = 0.4

	// Concept keyword-match strengths before confidence weighting.
	conceptExactStrength     = 1.0
	conceptSubstringStrength = 0.8
)

// Engine ranks documents by fusing lexical (title), structural (concept)
// and semantic (vector) relevance signals.
type Engine struct {
	docs       storage.DocumentRepository
	concepts   storage.ConceptRepository
	store      *vector.Store
	engagement EngagementRanker

	titleWeight    float64
	conceptWeight  float64
	semanticWeight float64
	topResults     int
	monitor        Monitor
	logger         *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithWeights overrides the fusion weights. They must be non-negative and
// sum to 1.
func WithWeights(title, concept, semantic float64) Option {
	return func(e *Engine) error {
		if title < 0 || concept < 0 || semantic < 0 {
			return ErrInvalidWeights
		}
		if math.Abs(title+concept+semantic-1.0) > 1e-9 {
			return ErrInvalidWeights
		}
		e.titleWeight = title
		e.conceptWeight = concept
		e.semanticWeight = semantic
		return nil
	}
}

// WithTopResults sets the shortlist size. Default is 6.
func WithTopResults(n int) Option {
	return func(e *Engine) error {
		if n > 0 {
			e.topResults = n
		}
		return nil
	}
}

// WithMonitor sets the search monitor. Default is a no-op.
func WithMonitor(monitor Monitor) Option {
	return func(e *Engine) error {
		if monitor != nil {
			e.monitor = monitor
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a hybrid ranking engine.
func NewEngine(
	docs storage.DocumentRepository,
	concepts storage.ConceptRepository,
	store *vector.Store,
	engagement EngagementRanker,
	opts ...Option,
) (*Engine, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if concepts == nil {
		return nil, ErrConceptRepositoryRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}

	e := &Engine{
		docs:           docs,
		concepts:       concepts,
		store:          store,
		engagement:     engagement,
		titleWeight:    defaultTitleWeight,
		conceptWeight:  defaultConceptWeight,
		semanticWeight: defaultSemanticWeight,
		topResults:     DefaultTopResults,
		monitor:        &noopMonitor{},
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Search ranks all documents against the query and returns everything at or
// above the threshold, shortlisted to the configured top-N. A negative
// threshold selects DefaultThreshold. An empty query falls back to
// engagement ordering. Degraded signals (missing vectors, failed query
// embedding) reduce scores but never produce an error; only storage
// unavailability does.
func (e *Engine) Search(ctx context.Context, query string, threshold float64) (*core.QueryResponse, error) {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	query = strings.TrimSpace(query)
	e.monitor.Start(query)

	if query == "" {
		return e.searchByEngagement(ctx, threshold)
	}

	docs, err := e.docs.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	allConcepts, err := e.concepts.ListConcepts(ctx)
	if err != nil {
		return nil, err
	}
	conceptsByDoc := make(map[core.ID][]*core.Concept)
	conceptDoc := make(map[core.ID]core.ID, len(allConcepts))
	for _, c := range allConcepts {
		conceptsByDoc[c.DocId] = append(conceptsByDoc[c.DocId], c)
		conceptDoc[c.Id] = c.DocId
	}

	titleScores := make(map[core.ID]float64, len(docs))
	for _, doc := range docs {
		titleScores[doc.Id] = scoreTitle(query, doc.Title)
	}
	e.monitor.AfterTitleScoring(titleScores)

	conceptScores := make(map[core.ID]float64, len(docs))
	matchedLabels := make(map[core.ID][]string)
	for _, doc := range docs {
		score, labels := scoreConcepts(query, conceptsByDoc[doc.Id])
		conceptScores[doc.Id] = score
		matchedLabels[doc.Id] = labels
	}
	e.monitor.AfterConceptScoring(conceptScores)

	semanticScores := e.semanticScores(ctx, query, len(docs), conceptDoc)
	e.monitor.AfterSemanticScoring(semanticScores)

	response := &core.QueryResponse{
		Query:          query,
		DocumentScores: make(map[core.ID]float64),
		Threshold:      threshold,
	}

	for _, doc := range docs {
		title := titleScores[doc.Id]
		concept := conceptScores[doc.Id]
		semantic := semanticScores[doc.Id]
		score := e.fuse(title, concept, semantic)

		// Hard cut: below-threshold documents appear nowhere
		if score < threshold {
			continue
		}

		response.DocumentScores[doc.Id] = score
		response.Results = append(response.Results, &core.SearchResult{
			DocId:         doc.Id,
			Title:         doc.Title,
			Score:         score,
			MatchType:     e.matchType(title, concept, semantic),
			TitleScore:    title,
			ConceptScore:  concept,
			SemanticScore: semantic,
			Concepts:      matchedLabels[doc.Id],
		})
	}

	sort.Slice(response.Results, func(i, j int) bool {
		if response.Results[i].Score != response.Results[j].Score {
			return response.Results[i].Score > response.Results[j].Score
		}
		return response.Results[i].DocId < response.Results[j].DocId
	})
	if len(response.Results) > e.topResults {
		response.Results = response.Results[:e.topResults]
	}
	response.Count = len(response.Results)

	e.monitor.Finish(response)
	return response, nil
}

// Similar delegates a stored-object neighborhood query to the vector store.
func (e *Engine) Similar(ctx context.Context, objectID core.ID, kind vector.Kind, limit int, threshold float32) (*core.SimilarResponse, error) {
	return e.store.Similar(ctx, objectID, kind, limit, threshold)
}

// SimilarByText delegates a raw-text neighborhood query to the vector store.
func (e *Engine) SimilarByText(ctx context.Context, text string, kind vector.Kind, limit int, threshold float32) (*core.SimilarResponse, error) {
	return e.store.SimilarByText(ctx, text, kind, limit, threshold)
}

// searchByEngagement handles the empty-query case through the engagement
// ranker: a different ranking source, not a degenerate fusion.
func (e *Engine) searchByEngagement(ctx context.Context, threshold float64) (*core.QueryResponse, error) {
	response := &core.QueryResponse{
		Query:          "",
		DocumentScores: make(map[core.ID]float64),
		Threshold:      threshold,
	}

	if e.engagement == nil {
		e.monitor.Finish(response)
		return response, nil
	}

	results, err := e.engagement.Rank(ctx, e.topResults)
	if err != nil {
		return nil, err
	}
	response.Results = results
	for _, r := range results {
		response.DocumentScores[r.DocId] = r.Score
	}
	response.Count = len(results)

	e.monitor.Finish(response)
	return response, nil
}

// semanticScores embeds the query once and scores documents by cosine
// similarity. Documents without a vector inherit the best similarity among
// their concepts. A failed query embedding degrades to lexical-only
// scoring: every semantic score is zero and no error escapes.
func (e *Engine) semanticScores(ctx context.Context, query string, docCount int, conceptDoc map[core.ID]core.ID) map[core.ID]float64 {
	scores := make(map[core.ID]float64)

	docResp, err := e.store.SimilarByText(ctx, query, vector.KindDocument, docCount, 0)
	if err != nil {
		if !errors.Is(err, vector.ErrEmbeddingFailed) {
			e.logger.Warn("semantic document scoring failed", "err", err)
		}
		e.monitor.SemanticDegraded(err)
		return scores
	}
	fromDocVector := make(map[core.ID]bool, len(docResp.Results))
	for _, m := range docResp.Results {
		scores[m.Id] = float64(m.Score)
		fromDocVector[m.Id] = true
	}

	conceptResp, err := e.store.SimilarByText(ctx, query, vector.KindConcept, len(conceptDoc), 0)
	if err != nil {
		// Document-level scores still stand
		e.logger.Debug("semantic concept scoring failed", "err", err)
		return scores
	}
	for _, m := range conceptResp.Results {
		docID, ok := conceptDoc[m.Id]
		if !ok || fromDocVector[docID] {
			continue
		}
		if float64(m.Score) > scores[docID] {
			scores[docID] = float64(m.Score)
		}
	}

	return scores
}

// matchType names the dominant weighted signal.
// fuse blends the three signals with the configured weights. Weights are
// non-negative and sum to 1, so increasing any one signal never lowers the
// fused score.
func (e *Engine) fuse(title, concept, semantic float64) float64 {
	return e.titleWeight*title + e.conceptWeight*concept + e.semanticWeight*semantic
}

func (e *Engine) matchType(title, concept, semantic float64) string {
	wTitle := e.titleWeight * title
	wConcept := e.conceptWeight * concept
	wSemantic := e.semanticWeight * semantic

	switch {
	case wTitle >= wConcept && wTitle >= wSemantic:
		return "title"
	case wSemantic >= wConcept:
		return "semantic"
	default:
		return "concept"
	}
}

// scoreConcepts returns the best keyword-match score among the document's
// concepts whose labels contain the query, weighted by each concept's
// confidence, plus the matching labels.
func scoreConcepts(query string, concepts []*core.Concept) (float64, []string) {
	q := strings.ToLower(query)
	var best float64
	var labels []string

	for _, c := range concepts {
		label := strings.ToLower(c.Label)
		if !strings.Contains(label, q) {
			continue
		}
		strength := conceptSubstringStrength
		if label == q {
			strength = conceptExactStrength
		}
		score := strength * float64(c.Confidence)
		if score > best {
			best = score
		}
		labels = append(labels, c.Label)
	}

	return best, labels
}
