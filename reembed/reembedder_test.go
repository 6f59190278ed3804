package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontolite/ontolite/ai/mock"
	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage/badger"
	"github.com/ontolite/ontolite/vector"
)

func setupReembedStores(t *testing.T) *badger.Stores {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })
	return stores
}

func TestReembedRotatesFingerprints(t *testing.T) {
	stores := setupReembedStores(t)
	ctx := context.Background()

	oldVector := []float32{0.1, 0.2, 0.3}
	oldFingerprint := "legacy-model:3:deadbeef:2024-01-01T00:00:00Z"

	docs, err := stores.Documents.AddDocuments(ctx, &core.Document{
		Title:             "Quarterly Report",
		Vector:            oldVector,
		VectorFingerprint: oldFingerprint,
	})
	require.NoError(t, err)
	doc := docs[0]

	_, err = stores.Concepts.AddConcepts(ctx, &core.Concept{
		DocId:             doc.Id,
		Label:             "Revenue",
		Type:              "Metric",
		Confidence:        0.9,
		Vector:            oldVector,
		VectorFingerprint: oldFingerprint,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	r := NewReembedder(stores.Documents, stores.Concepts, stores.Provenance,
		mock.NewMockEmbedder(), nil, nil, &buf)
	require.NoError(t, r.Run(ctx))

	updated, err := stores.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.NotEqual(t, oldFingerprint, updated.VectorFingerprint)
	assert.NotEqual(t, oldVector, updated.Vector)

	fp, err := core.ParseFingerprint(updated.VectorFingerprint)
	require.NoError(t, err)
	assert.Equal(t, "mock-embedder", fp.Model)

	concepts, err := stores.Concepts.GetConceptsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.NotEqual(t, oldFingerprint, concepts[0].VectorFingerprint)

	events, err := stores.Provenance.GetEventsByDocument(ctx, doc.Id)
	require.NoError(t, err)

	var regenerated int
	var sawPrevious bool
	for _, e := range events {
		if e.EventType == core.EventVectorRegenerated {
			regenerated++
			if e.Metadata["previous_fingerprint"] == oldFingerprint {
				sawPrevious = true
			}
		}
	}
	// one rotation event for the document, one for its concepts
	assert.Equal(t, 2, regenerated)
	assert.True(t, sawPrevious)

	assert.Contains(t, buf.String(), "Reembedding complete")
}

func TestReembedFreshObjectsRecordGeneration(t *testing.T) {
	stores := setupReembedStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, &core.Document{Title: "Unembedded"})
	require.NoError(t, err)

	var buf bytes.Buffer
	r := NewReembedder(stores.Documents, stores.Concepts, stores.Provenance,
		mock.NewMockEmbedder(), nil, nil, &buf)
	require.NoError(t, r.Run(ctx))

	events, err := stores.Provenance.GetEventsByDocument(ctx, docs[0].Id)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventVectorGenerated, events[0].EventType)
	assert.NotContains(t, events[0].Metadata, "previous_fingerprint")
}

func TestReembedEmptyDatabase(t *testing.T) {
	stores := setupReembedStores(t)

	var buf bytes.Buffer
	r := NewReembedder(stores.Documents, stores.Concepts, stores.Provenance,
		mock.NewMockEmbedder(), nil, nil, &buf)
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, buf.String(), "No objects found")
}

func TestReembedPropagatesEmbeddingFailure(t *testing.T) {
	stores := setupReembedStores(t)
	ctx := context.Background()

	_, err := stores.Documents.AddDocuments(ctx, &core.Document{Title: "Doomed"})
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("service down")
	}

	config := &Config{BatchSize: 10, ReportInterval: 10, MaxRetries: 2, RetryDelay: time.Millisecond}

	var buf bytes.Buffer
	r := NewReembedder(stores.Documents, stores.Concepts, stores.Provenance,
		embedder, nil, config, &buf)
	err = r.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service down")
}

func TestReembedRebuildsIndex(t *testing.T) {
	stores := setupReembedStores(t)
	ctx := context.Background()

	_, err := stores.Documents.AddDocuments(ctx, &core.Document{Title: "Indexed"})
	require.NoError(t, err)

	index := vector.NewIndex(stores.Documents, stores.Concepts)
	require.False(t, index.Ready())

	var buf bytes.Buffer
	r := NewReembedder(stores.Documents, stores.Concepts, stores.Provenance,
		mock.NewMockEmbedder(), index, nil, &buf)
	require.NoError(t, r.Run(ctx))

	assert.True(t, index.Ready())
	assert.Equal(t, 1, index.Len(vector.KindDocument))
}
