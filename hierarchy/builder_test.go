package hierarchy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontolite/ontolite/ai/mock"
	"github.com/ontolite/ontolite/core"
)

func newTestBuilder(t *testing.T, labeler *mock.MockLabeler) *Builder {
	t.Helper()
	if labeler == nil {
		labeler = mock.NewMockLabeler()
	}
	b, err := NewBuilder(labeler)
	require.NoError(t, err)
	return b
}

func leafConcepts(docID core.ID, labels ...string) []*core.Concept {
	concepts := make([]*core.Concept, len(labels))
	for i, label := range labels {
		concepts[i] = &core.Concept{
			Id:             core.IDFromContent(label),
			DocId:          docID,
			Label:          label,
			Type:           "topic",
			HierarchyLevel: core.LevelConcept,
			Confidence:     0.8,
		}
	}
	return concepts
}

func relate(docID core.ID, verb string, src, dst *core.Concept) *core.Relation {
	return &core.Relation{DocId: docID, SrcId: src.Id, DstId: dst.Id, Verb: verb, Confidence: 0.9}
}

// checkTreeInvariant walks every node to the document root, asserting
// strictly decreasing levels and bounded depth.
func checkTreeInvariant(t *testing.T, concepts []*core.Concept) {
	t.Helper()
	byID := make(map[core.ID]*core.Concept)
	for _, c := range concepts {
		byID[c.Id] = c
	}
	for _, c := range concepts {
		node := c
		for hops := 0; node.ParentId != 0; hops++ {
			require.LessOrEqual(t, hops, 4, "ancestor walk exceeded bound at %q", c.Label)
			parent, ok := byID[node.ParentId]
			require.True(t, ok, "node %q has unknown parent %d", node.Label, node.ParentId)
			require.Less(t, int(parent.HierarchyLevel), int(node.HierarchyLevel),
				"parent %q must sit above %q", parent.Label, node.Label)
			node = parent
		}
	}
}

func TestBuildEmptyConcepts(t *testing.T) {
	b := newTestBuilder(t, nil)
	result, err := b.Build(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Concepts)
	assert.Zero(t, result.Stats.Clusters)
}

func TestBuildNilLabeler(t *testing.T) {
	_, err := NewBuilder(nil)
	assert.ErrorIs(t, err, ErrNilLabeler)
}

func TestSmallClusterStaysFlat(t *testing.T) {
	docID := core.ID(1)
	concepts := leafConcepts(docID, "ledger", "audit", "invoice")
	relations := []*core.Relation{
		relate(docID, "defines", concepts[0], concepts[1]),
		relate(docID, "contains", concepts[1], concepts[2]),
	}

	b := newTestBuilder(t, nil)
	result, err := b.Build(context.Background(), docID, concepts, relations)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Clusters)
	assert.Equal(t, 0, result.Stats.Refinements, "clusters of <=3 members get no refinement layer")
	assert.Equal(t, 0, result.Stats.Orphans)
	assert.Len(t, result.Concepts, 4)

	var cluster *core.Concept
	for _, c := range result.Concepts {
		if c.HierarchyLevel == core.LevelCluster {
			cluster = c
		}
	}
	require.NotNil(t, cluster)
	assert.Equal(t, core.ID(0), cluster.ParentId)
	for _, leaf := range concepts {
		assert.Equal(t, cluster.Id, leaf.ParentId)
		assert.Equal(t, core.LevelConcept, leaf.HierarchyLevel)
	}

	checkTreeInvariant(t, result.Concepts)
}

func TestLargeClusterGetsRefinements(t *testing.T) {
	docID := core.ID(2)
	concepts := leafConcepts(docID, "cpu", "scheduler", "memory", "paging")
	relations := []*core.Relation{
		// Two tight pairs bridged by a develops edge: one cluster, two refinements
		relate(docID, "defines", concepts[0], concepts[1]),
		relate(docID, "defines", concepts[2], concepts[3]),
		relate(docID, "develops", concepts[1], concepts[2]),
	}

	b := newTestBuilder(t, nil)
	result, err := b.Build(context.Background(), docID, concepts, relations)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Clusters)
	assert.Equal(t, 2, result.Stats.Refinements)
	assert.Len(t, result.Concepts, 7)

	levels := map[core.HierarchyLevel]int{}
	for _, c := range result.Concepts {
		levels[c.HierarchyLevel]++
	}
	assert.Equal(t, 1, levels[core.LevelCluster])
	assert.Equal(t, 2, levels[core.LevelRefinement])
	assert.Equal(t, 4, levels[core.LevelConcept])

	checkTreeInvariant(t, result.Concepts)
}

func TestLargeClusterAllSingletonSubGroups(t *testing.T) {
	docID := core.ID(3)
	concepts := leafConcepts(docID, "a", "b", "c", "d")
	// Chain of develops edges: one component at cluster level, but the
	// refinement pass sees no edges at all
	relations := []*core.Relation{
		relate(docID, "develops", concepts[0], concepts[1]),
		relate(docID, "develops", concepts[1], concepts[2]),
		relate(docID, "develops", concepts[2], concepts[3]),
	}

	b := newTestBuilder(t, nil)
	result, err := b.Build(context.Background(), docID, concepts, relations)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Clusters)
	assert.Equal(t, 0, result.Stats.Refinements, "all-singleton sub-groups must not produce a refinement layer")

	var cluster *core.Concept
	for _, c := range result.Concepts {
		if c.HierarchyLevel == core.LevelCluster {
			cluster = c
		}
	}
	require.NotNil(t, cluster)
	for _, leaf := range concepts {
		assert.Equal(t, cluster.Id, leaf.ParentId)
	}
}

func TestOversizedSubGroupSplit(t *testing.T) {
	docID := core.ID(4)
	labels := []string{"n1", "n2", "n3", "n4", "n5", "n6", "n7", "n8", "n9"}
	concepts := leafConcepts(docID, labels...)
	var relations []*core.Relation
	for i := 0; i < len(concepts)-1; i++ {
		relations = append(relations, relate(docID, "contains", concepts[i], concepts[i+1]))
	}

	b := newTestBuilder(t, nil)
	result, err := b.Build(context.Background(), docID, concepts, relations)
	require.NoError(t, err)

	// Nine connected members: split into a 7-member and a 2-member refinement
	assert.Equal(t, 1, result.Stats.Clusters)
	assert.Equal(t, 2, result.Stats.Refinements)

	memberCounts := map[core.ID]int{}
	for _, c := range result.Concepts {
		if c.HierarchyLevel == core.LevelConcept {
			memberCounts[c.ParentId]++
		}
	}
	counts := make([]int, 0, len(memberCounts))
	for _, n := range memberCounts {
		counts = append(counts, n)
	}
	assert.ElementsMatch(t, []int{7, 2}, counts)

	checkTreeInvariant(t, result.Concepts)
}

func TestOrphanHandling(t *testing.T) {
	docID := core.ID(5)
	concepts := leafConcepts(docID, "pair1", "pair2", "loner")
	relations := []*core.Relation{
		relate(docID, "supports", concepts[0], concepts[1]),
		// Non-structural verb: does not connect
		{DocId: docID, SrcId: concepts[1].Id, DstId: concepts[2].Id, Verb: "mentions"},
	}

	b := newTestBuilder(t, nil)
	result, err := b.Build(context.Background(), docID, concepts, relations)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Orphans)
	assert.InDelta(t, 1.0/3.0, result.Stats.OrphanRatio, 1e-9)
	assert.Equal(t, core.ID(0), concepts[2].ParentId)
	assert.Equal(t, core.LevelConcept, concepts[2].HierarchyLevel)
}

func TestOrphanRatioBoundForDenseExtraction(t *testing.T) {
	docID := core.ID(6)
	labels := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9", "lone"}
	concepts := leafConcepts(docID, labels...)
	var relations []*core.Relation
	for i := 0; i < 8; i++ {
		relations = append(relations, relate(docID, "supports", concepts[i], concepts[i+1]))
	}

	b := newTestBuilder(t, nil)
	result, err := b.Build(context.Background(), docID, concepts, relations)
	require.NoError(t, err)
	assert.Less(t, result.Stats.OrphanRatio, 0.2)
}

func TestLabelFallbackOnFailure(t *testing.T) {
	docID := core.ID(7)
	concepts := leafConcepts(docID, "Builders Phase", "Founders Phase", "MSO")
	relations := []*core.Relation{
		relate(docID, "defines", concepts[0], concepts[1]),
		relate(docID, "defines", concepts[1], concepts[2]),
	}

	labeler := mock.NewMockLabeler()
	labeler.LabelClusterFunc = func(ctx context.Context, memberLabels []string) (string, error) {
		return "", errors.New("model unavailable")
	}

	b := newTestBuilder(t, labeler)
	result, err := b.Build(context.Background(), docID, concepts, relations)
	require.NoError(t, err, "labeling failure must not abort the build")

	var cluster *core.Concept
	for _, c := range result.Concepts {
		if c.HierarchyLevel == core.LevelCluster {
			cluster = c
		}
	}
	require.NotNil(t, cluster)
	assert.Equal(t, "Builders Phase", cluster.Label)
}

func TestSyntheticIDsDeterministic(t *testing.T) {
	docID := core.ID(8)
	build := func() []*core.Concept {
		concepts := leafConcepts(docID, "x", "y", "z")
		relations := []*core.Relation{
			relate(docID, "defines", concepts[0], concepts[1]),
			relate(docID, "defines", concepts[1], concepts[2]),
		}
		b := newTestBuilder(t, nil)
		result, err := b.Build(context.Background(), docID, concepts, relations)
		require.NoError(t, err)
		return result.Concepts
	}

	first := build()
	second := build()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Id, second[i].Id)
		assert.Equal(t, first[i].ParentId, second[i].ParentId)
	}
}

func TestLargestClustersLabeledFirst(t *testing.T) {
	docID := core.ID(9)
	concepts := leafConcepts(docID, "s1", "s2", "b1", "b2", "b3")
	relations := []*core.Relation{
		relate(docID, "defines", concepts[0], concepts[1]),
		relate(docID, "defines", concepts[2], concepts[3]),
		relate(docID, "defines", concepts[3], concepts[4]),
	}

	var order [][]string
	labeler := mock.NewMockLabeler()
	labeler.LabelClusterFunc = func(ctx context.Context, memberLabels []string) (string, error) {
		copied := append([]string(nil), memberLabels...)
		order = append(order, copied)
		return "Label", nil
	}

	b := newTestBuilder(t, labeler)
	_, err := b.Build(context.Background(), docID, concepts, relations)
	require.NoError(t, err)

	require.Len(t, order, 2)
	assert.Len(t, order[0], 3, "largest component labeled first")
	assert.Len(t, order[1], 2)
}
