package ontolite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontolite/ontolite/ai/mock"
	"github.com/ontolite/ontolite/core"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.DocumentRepository())
		assert.NotNil(t, db.ConceptRepository())
		assert.NotNil(t, db.RelationRepository())
		assert.NotNil(t, db.ProvenanceRepository())
		assert.NotNil(t, db.VectorStore())
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// A file where a directory is expected
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, db)

	assert.NoError(t, db.Close())
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := db.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create search engine", func(t *testing.T) {
		engine, err := db.NewEngine()
		require.NoError(t, err)
		require.NotNil(t, engine)
	})

	t.Run("can create reembedder", func(t *testing.T) {
		reembedder := db.NewReembedder(nil, os.Stderr)
		require.NotNil(t, reembedder)
	})
}

func TestDatabase_IngestAndSearch(t *testing.T) {
	db, err := NewDatabase("", WithInMemory(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	doc, err := pipeline.Ingest(ctx, &core.Document{
		Title:   "Loom Financial Model.pdf",
		Summary: "Revenue projections and runway for the Loom expansion.",
	}, []*core.Concept{
		{Id: 1, Label: "Runway", Type: "Metric", Confidence: 0.9},
		{Id: 2, Label: "Revenue Projection", Type: "Topic", Confidence: 0.8},
	}, []*core.Relation{
		{SrcId: 2, DstId: 1, Verb: "supports", Confidence: 0.8},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return !pipeline.Processing(doc.Id)
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, db.RebuildIndex(ctx))

	engine, err := db.NewEngine()
	require.NoError(t, err)

	resp, err := engine.Search(ctx, "loom financial", -1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, resp.Count, 1)
	assert.Equal(t, doc.Id, resp.Results[0].DocId)

	events, err := db.ProvenanceRepository().GetEventsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}
