package badger

import (
	"context"
	"testing"

	"github.com/ontolite/ontolite/core"
)

func TestConceptBasics(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()

	added, err := stores.Concepts.AddConcepts(ctx, &core.Concept{
		DocId:          7,
		Label:          "invoice reconciliation",
		Type:           "process",
		HierarchyLevel: core.LevelConcept,
		Confidence:     0.9,
	})
	if err != nil {
		t.Fatalf("Failed to add concept: %v", err)
	}
	if added[0].Id == 0 {
		t.Fatal("Expected content-derived ID")
	}

	// Same doc/type/label produces the same ID
	again := &core.Concept{DocId: 7, Label: "invoice reconciliation", Type: "process", HierarchyLevel: core.LevelConcept}
	if _, err := stores.Concepts.AddConcepts(ctx, again); err != nil {
		t.Fatalf("Failed to re-add concept: %v", err)
	}
	if again.Id != added[0].Id {
		t.Fatalf("Expected deterministic ID %d, got %d", added[0].Id, again.Id)
	}

	byDoc, err := stores.Concepts.GetConceptsByDocument(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to get concepts by document: %v", err)
	}
	if len(byDoc) != 1 {
		t.Fatalf("Expected 1 concept, got %d", len(byDoc))
	}
}

func TestConceptDocumentIsolation(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()

	_, err = stores.Concepts.AddConcepts(ctx,
		&core.Concept{DocId: 1, Label: "alpha", Type: "entity", HierarchyLevel: core.LevelConcept},
		&core.Concept{DocId: 2, Label: "beta", Type: "entity", HierarchyLevel: core.LevelConcept},
	)
	if err != nil {
		t.Fatalf("Failed to add concepts: %v", err)
	}

	doc1, err := stores.Concepts.GetConceptsByDocument(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get concepts: %v", err)
	}
	if len(doc1) != 1 || doc1[0].Label != "alpha" {
		t.Fatalf("Expected only doc 1 concepts, got %v", doc1)
	}
}

func TestSwapHierarchy(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()
	docID := core.ID(42)

	// Flat extraction first
	flat := []*core.Concept{
		{DocId: docID, Label: "ledger", Type: "entity", HierarchyLevel: core.LevelConcept, Vector: []float32{0.1, 0.2}},
		{DocId: docID, Label: "audit", Type: "entity", HierarchyLevel: core.LevelConcept},
	}
	if _, err := stores.Concepts.AddConcepts(ctx, flat...); err != nil {
		t.Fatalf("Failed to add flat concepts: %v", err)
	}

	// Replacement: both leaves kept under a synthetic cluster node
	cluster := &core.Concept{
		Id:             core.SyntheticID(docID, "cluster", 0),
		DocId:          docID,
		Label:          "Accounting",
		Type:           "cluster",
		HierarchyLevel: core.LevelCluster,
	}
	newLedger := &core.Concept{
		Id: flat[0].Id, DocId: docID, Label: "ledger", Type: "entity",
		HierarchyLevel: core.LevelConcept, ParentId: cluster.Id,
	}
	newAudit := &core.Concept{
		Id: flat[1].Id, DocId: docID, Label: "audit", Type: "entity",
		HierarchyLevel: core.LevelConcept, ParentId: cluster.Id,
	}

	if err := stores.Concepts.SwapHierarchy(ctx, docID, []*core.Concept{cluster, newLedger, newAudit}); err != nil {
		t.Fatalf("Failed to swap hierarchy: %v", err)
	}

	after, err := stores.Concepts.GetConceptsByDocument(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to get concepts: %v", err)
	}
	if len(after) != 3 {
		t.Fatalf("Expected 3 concepts after swap, got %d", len(after))
	}

	byID := make(map[core.ID]*core.Concept)
	for _, c := range after {
		byID[c.Id] = c
	}

	// Vector carried over from the old record
	if got := byID[flat[0].Id]; got == nil || len(got.Vector) != 2 {
		t.Fatal("Expected ledger vector carried over through swap")
	}
	if byID[flat[1].Id].ParentId != cluster.Id {
		t.Fatal("Expected leaf reparented to cluster")
	}
	if !byID[cluster.Id].Synthetic() {
		t.Fatal("Expected cluster node to be synthetic")
	}
}

func TestSwapHierarchyRejectsForeignConcepts(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	err = stores.Concepts.SwapHierarchy(context.Background(), 1, []*core.Concept{
		{Id: 10, DocId: 2, Label: "stray", Type: "entity", HierarchyLevel: core.LevelConcept},
	})
	if err == nil {
		t.Fatal("Expected error for concept from another document")
	}
}

func TestFindSimilarConcepts(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()

	_, err = stores.Concepts.AddConcepts(ctx,
		&core.Concept{DocId: 1, Label: "close", Type: "entity", HierarchyLevel: core.LevelConcept, Vector: []float32{1, 0}},
		&core.Concept{DocId: 1, Label: "far", Type: "entity", HierarchyLevel: core.LevelConcept, Vector: []float32{0, 1}},
	)
	if err != nil {
		t.Fatalf("Failed to add concepts: %v", err)
	}

	matches, err := stores.Concepts.FindSimilarConcepts(ctx, []float32{1, 0}, 0.5, 10)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
}
