package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ontolite/ontolite/core"
)

func TestProvenanceOrdering(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()
	docID := core.ID(5)
	base := time.Now().UTC().Add(-time.Hour)

	types := []string{core.EventDocumentIngested, core.EventHierarchyBuilt, core.EventVectorGenerated}
	// Append out of order; iteration must come back time-ordered
	for _, i := range []int{2, 0, 1} {
		err := stores.Provenance.AppendEvent(ctx, &core.ProvenanceEvent{
			DocId:     docID,
			EventType: types[i],
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Actor:     "pipeline",
		})
		if err != nil {
			t.Fatalf("Failed to append event: %v", err)
		}
	}

	events, err := stores.Provenance.GetEventsByDocument(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to get events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.EventType != types[i] {
			t.Fatalf("Expected %s at position %d, got %s", types[i], i, ev.EventType)
		}
		if ev.Id == "" {
			t.Fatal("Expected event ID to be assigned")
		}
	}

	count, err := stores.Provenance.CountEventsByDocument(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 3 {
		t.Fatalf("Expected count 3, got %d", count)
	}
}

func TestProvenancePerDocument(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()

	for _, docID := range []core.ID{1, 1, 2} {
		err := stores.Provenance.AppendEvent(ctx, &core.ProvenanceEvent{
			DocId:     docID,
			EventType: core.EventDocumentIngested,
			Actor:     "test",
		})
		if err != nil {
			t.Fatalf("Failed to append event: %v", err)
		}
	}

	count, err := stores.Provenance.CountEventsByDocument(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 events for doc 1, got %d", count)
	}

	events, err := stores.Provenance.GetEventsByDocument(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event for doc 2, got %d", len(events))
	}
}

func TestProvenanceMetadataRoundTrip(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()

	err = stores.Provenance.AppendEvent(ctx, &core.ProvenanceEvent{
		DocId:     9,
		EventType: core.EventVectorRegenerated,
		Actor:     "reembedder",
		Checksum:  "abc123",
		Metadata: map[string]string{
			"previous_fingerprint": "text-embedding-3-small:1536:deadbeef:2026-01-01T00:00:00Z",
			"batch":                "4",
		},
	})
	if err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}

	events, err := stores.Provenance.GetEventsByDocument(ctx, 9)
	if err != nil {
		t.Fatalf("Failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Metadata["batch"] != "4" {
		t.Fatalf("Expected metadata preserved, got %v", events[0].Metadata)
	}
	if events[0].Checksum != "abc123" {
		t.Fatalf("Expected checksum preserved, got %s", events[0].Checksum)
	}
}
