package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{"valid", &Document{Title: "Report"}, nil},
		{"nil document", nil, ErrInvalidDocument},
		{"empty title", &Document{}, ErrEmptyTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConcept(t *testing.T) {
	tests := []struct {
		name    string
		concept *Concept
		wantErr error
	}{
		{"valid leaf", &Concept{Label: "Runway", HierarchyLevel: LevelConcept}, nil},
		{"valid cluster", &Concept{Label: "Finance", HierarchyLevel: LevelCluster}, nil},
		{"nil concept", nil, ErrInvalidConcept},
		{"empty label", &Concept{HierarchyLevel: LevelConcept}, ErrEmptyConceptLabel},
		{"undefined level", &Concept{Label: "x", HierarchyLevel: 7}, ErrInvalidHierarchyLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConcept(tt.concept)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateConcept() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateConcept() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateHierarchyLevel(t *testing.T) {
	for _, level := range []HierarchyLevel{LevelDocument, LevelCluster, LevelRefinement, LevelConcept} {
		if err := ValidateHierarchyLevel(level); err != nil {
			t.Errorf("ValidateHierarchyLevel(%d) error = %v", level, err)
		}
	}
	// Level 1 is reserved and must never validate.
	if err := ValidateHierarchyLevel(1); !errors.Is(err, ErrInvalidHierarchyLevel) {
		t.Errorf("ValidateHierarchyLevel(1) error = %v, want %v", err, ErrInvalidHierarchyLevel)
	}
}

func TestSanitizeExtraction(t *testing.T) {
	docID := ID(42)
	concepts := []*Concept{
		{Id: 400, Label: "Runway", Type: "metric", Confidence: 0.8},
		nil,
		{Label: ""},
		{Id: 500, Label: "Burn Rate", Type: "metric", Confidence: 1.5},
		{Label: "Hiring", Type: "topic", Confidence: -0.2},
	}
	relations := []*Relation{
		{SrcId: 500, DstId: 400, Verb: "supports", Confidence: 0.9},
	}

	kept, keptRels := SanitizeExtraction(docID, concepts, relations)

	if len(kept) != 3 {
		t.Fatalf("kept %d concepts, want 3", len(kept))
	}
	for _, c := range kept {
		if c.DocId != docID {
			t.Errorf("concept %q DocId = %d, want %d", c.Label, c.DocId, docID)
		}
		if c.Id == 0 {
			t.Errorf("concept %q kept zero ID", c.Label)
		}
		if c.HierarchyLevel != LevelConcept {
			t.Errorf("concept %q level = %d, want %d", c.Label, c.HierarchyLevel, LevelConcept)
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			t.Errorf("concept %q confidence %f out of range", c.Label, c.Confidence)
		}
	}

	if kept[1].Id != 500 {
		t.Errorf("explicit ID overwritten: got %d", kept[1].Id)
	}
	if kept[1].Confidence != 1 {
		t.Errorf("confidence not clamped: got %f", kept[1].Confidence)
	}
	if kept[2].Confidence != 0 {
		t.Errorf("negative confidence not clamped: got %f", kept[2].Confidence)
	}

	if len(keptRels) != 1 {
		t.Fatalf("kept %d relations, want 1", len(keptRels))
	}
	if keptRels[0].DocId != docID {
		t.Errorf("relation DocId = %d, want %d", keptRels[0].DocId, docID)
	}
}

func TestSanitizeExtraction_AssignsContentIDs(t *testing.T) {
	a, _ := SanitizeExtraction(7, []*Concept{{Label: "Runway", Type: "metric"}}, nil)
	b, _ := SanitizeExtraction(7, []*Concept{{Label: "Runway", Type: "metric"}}, nil)
	if a[0].Id != b[0].Id {
		t.Errorf("content IDs not deterministic: %d vs %d", a[0].Id, b[0].Id)
	}

	c, _ := SanitizeExtraction(8, []*Concept{{Label: "Runway", Type: "metric"}}, nil)
	if a[0].Id == c[0].Id {
		t.Error("content IDs collide across documents")
	}
}

func TestSanitizeExtraction_DropsBadRelations(t *testing.T) {
	docID := ID(42)
	concepts := []*Concept{
		{Id: 1, Label: "A"},
		{Id: 2, Label: "B"},
	}
	relations := []*Relation{
		{SrcId: 1, DstId: 2, Verb: "contains"},
		{SrcId: 1, DstId: 2, Verb: ""},
		{SrcId: 1, DstId: 999, Verb: "contains"},
		{SrcId: 1, DstId: 2, Verb: "contains", DocId: 99},
		nil,
	}

	_, kept := SanitizeExtraction(docID, concepts, relations)
	if len(kept) != 1 {
		t.Fatalf("kept %d relations, want 1", len(kept))
	}
	if kept[0].Verb != "contains" || kept[0].DstId != 2 {
		t.Errorf("wrong relation survived: %+v", kept[0])
	}
}
