package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontolite/ontolite/ai/mock"
	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage/badger"
)

func newTestStore(t *testing.T, embedder *mock.MockEmbedder) (*Store, *badger.Stores) {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	if embedder == nil {
		embedder = mock.NewMockEmbedder()
	}
	store, err := NewStore(embedder, stores.Documents, stores.Concepts, stores.Provenance)
	require.NoError(t, err)
	return store, stores
}

func addDocument(t *testing.T, stores *badger.Stores, title string) *core.Document {
	t.Helper()
	added, err := stores.Documents.AddDocuments(context.Background(), &core.Document{Title: title})
	require.NoError(t, err)
	return added[0]
}

func TestEmbedDocument(t *testing.T) {
	store, stores := newTestStore(t, nil)
	ctx := context.Background()

	doc := addDocument(t, stores, "Kubernetes Operations Handbook")
	require.NoError(t, store.EmbedDocument(ctx, doc))

	persisted, err := stores.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.NotEmpty(t, persisted.Vector)
	assert.NotEmpty(t, persisted.VectorFingerprint)

	fp, err := core.ParseFingerprint(persisted.VectorFingerprint)
	require.NoError(t, err)
	assert.Equal(t, "mock-embedder", fp.Model)
	assert.Equal(t, len(persisted.Vector), fp.Dimension)

	events, err := stores.Provenance.GetEventsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventVectorGenerated, events[0].EventType)
	assert.Equal(t, persisted.VectorFingerprint, events[0].Checksum)
}

func TestEmbedDocumentFailureIsNonFatal(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model offline")
	}
	store, stores := newTestStore(t, embedder)
	ctx := context.Background()

	doc := addDocument(t, stores, "Unlucky Document")
	require.NoError(t, store.EmbedDocument(ctx, doc), "embedding failure must not surface")

	persisted, err := stores.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Empty(t, persisted.Vector)
	assert.Empty(t, persisted.VectorFingerprint)

	count, err := stores.Provenance.CountEventsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Zero(t, count, "no vector event without a vector")
}

func TestReembedDocumentRecordsRegeneration(t *testing.T) {
	store, stores := newTestStore(t, nil)
	ctx := context.Background()

	doc := addDocument(t, stores, "Twice Embedded")
	require.NoError(t, store.EmbedDocument(ctx, doc))
	first := doc.VectorFingerprint
	require.NoError(t, store.EmbedDocument(ctx, doc))

	events, err := stores.Provenance.GetEventsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, core.EventVectorRegenerated, events[1].EventType)
	assert.Equal(t, first, events[1].Metadata["previous_fingerprint"])
}

func TestEmbedConcepts(t *testing.T) {
	store, stores := newTestStore(t, nil)
	ctx := context.Background()

	concepts, err := stores.Concepts.AddConcepts(ctx,
		&core.Concept{DocId: 3, Label: "raft", Type: "protocol", HierarchyLevel: core.LevelConcept},
		&core.Concept{DocId: 3, Label: "paxos", Type: "protocol", HierarchyLevel: core.LevelConcept},
	)
	require.NoError(t, err)

	require.NoError(t, store.EmbedConcepts(ctx, 3, concepts))

	for _, c := range concepts {
		persisted, err := stores.Concepts.GetConcept(ctx, c.Id)
		require.NoError(t, err)
		assert.NotEmpty(t, persisted.Vector)
		assert.NotEmpty(t, persisted.VectorFingerprint)
	}
	assert.Equal(t, 2, store.Index().Len(KindConcept))
}

func TestSimilarExcludesQueryObject(t *testing.T) {
	store, stores := newTestStore(t, nil)
	ctx := context.Background()

	a := addDocument(t, stores, "shared topic alpha")
	b := addDocument(t, stores, "shared topic alpha")
	require.NoError(t, store.EmbedDocument(ctx, a))
	require.NoError(t, store.EmbedDocument(ctx, b))

	resp, err := store.Similar(ctx, a.Id, KindDocument, 5, 0.0)
	require.NoError(t, err)
	assert.Equal(t, a.Id, resp.QueryId)
	for _, m := range resp.Results {
		assert.NotEqual(t, a.Id, m.Id)
	}
	// Identical text embeds identically, so b must be the top hit
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, b.Id, resp.Results[0].Id)
	assert.InDelta(t, 1.0, float64(resp.Results[0].Score), 1e-5)
}

func TestSimilarWithoutVector(t *testing.T) {
	store, stores := newTestStore(t, nil)
	doc := addDocument(t, stores, "Never Embedded")

	_, err := store.Similar(context.Background(), doc.Id, KindDocument, 5, 0.0)
	assert.ErrorIs(t, err, ErrNoVector)
}

func TestSimilarByText(t *testing.T) {
	store, stores := newTestStore(t, nil)
	ctx := context.Background()

	doc := addDocument(t, stores, "observability pipeline")
	require.NoError(t, store.EmbedDocument(ctx, doc))

	resp, err := store.SimilarByText(ctx, "observability pipeline", KindDocument, 5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "observability pipeline", resp.QueryText)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, doc.Id, resp.Results[0].Id)
}

func TestSimilarByTextEmbeddingFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model offline")
	}
	store, _ := newTestStore(t, embedder)

	_, err := store.SimilarByText(context.Background(), "anything", KindDocument, 5, 0.0)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestIndexFallbackToPrimaryStore(t *testing.T) {
	store, stores := newTestStore(t, nil)
	ctx := context.Background()

	// Write a vector directly to the primary store, bypassing the index
	doc := addDocument(t, stores, "cold index doc")
	doc.Vector = []float32{1, 0, 0}
	doc.VectorFingerprint = "m:3:deadbeef:2026-01-01T00:00:00Z"
	_, err := stores.Documents.UpdateDocuments(ctx, doc)
	require.NoError(t, err)

	require.False(t, store.Index().Ready())
	matches, err := store.search(ctx, KindDocument, []float32{1, 0, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 1, "cold index must fall back to primary scan")
	assert.Equal(t, doc.Id, matches[0].Id)

	// After a rebuild the index answers directly
	require.NoError(t, store.Index().Rebuild(ctx))
	require.True(t, store.Index().Ready())
	assert.Equal(t, 1, store.Index().Len(KindDocument))
}

func TestIndexRebuildSkipsUnembedded(t *testing.T) {
	store, stores := newTestStore(t, nil)
	ctx := context.Background()

	embedded := addDocument(t, stores, "has vector")
	require.NoError(t, store.EmbedDocument(ctx, embedded))
	addDocument(t, stores, "no vector")

	require.NoError(t, store.Index().Rebuild(ctx))
	assert.Equal(t, 1, store.Index().Len(KindDocument))
}

func TestIndexUpsertReplaces(t *testing.T) {
	idx := NewIndex(nil, nil)
	idx.Upsert(KindDocument, 1, []float32{1, 0}, "fp1")
	idx.Upsert(KindDocument, 1, []float32{0, 1}, "fp2")

	// Index not Ready yet, but entries are still tracked
	assert.Equal(t, 1, idx.Len(KindDocument))
}

func TestFingerprintDeterminism(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	ctx := context.Background()

	v1, err := embedder.EmbedText(ctx, "same text")
	require.NoError(t, err)
	v2, err := embedder.EmbedText(ctx, "same text")
	require.NoError(t, err)

	fp1 := core.NewFingerprint("mock-embedder", v1)
	fp2 := core.NewFingerprint("mock-embedder", v2)
	assert.Equal(t, fp1.Model, fp2.Model)
	assert.Equal(t, fp1.Dimension, fp2.Dimension)
	assert.Equal(t, fp1.Hash8, fp2.Hash8, "same vector must hash identically")
}
