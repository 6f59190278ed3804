package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"short content", "test content"},
		{"empty string", ""},
		{"long content", "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestSyntheticID(t *testing.T) {
	a := SyntheticID(42, "cluster", 0)
	b := SyntheticID(42, "cluster", 0)
	if a != b {
		t.Errorf("SyntheticID() not deterministic: %d vs %d", a, b)
	}

	if SyntheticID(42, "cluster", 0) == SyntheticID(42, "cluster", 1) {
		t.Error("SyntheticID() collision across ordinals")
	}
	if SyntheticID(42, "cluster", 0) == SyntheticID(42, "refinement", 0) {
		t.Error("SyntheticID() collision across kinds")
	}
	if SyntheticID(42, "cluster", 0) == SyntheticID(43, "cluster", 0) {
		t.Error("SyntheticID() collision across documents")
	}
}

func TestConcept_Synthetic(t *testing.T) {
	tests := []struct {
		name  string
		level HierarchyLevel
		want  bool
	}{
		{"cluster", LevelCluster, true},
		{"refinement", LevelRefinement, true},
		{"leaf", LevelConcept, false},
		{"document root", LevelDocument, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Concept{HierarchyLevel: tt.level}
			if got := c.Synthetic(); got != tt.want {
				t.Errorf("Synthetic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocument_EmbeddingText(t *testing.T) {
	doc := &Document{Title: "Quarterly Report"}
	if got := doc.EmbeddingText(); got != "Quarterly Report" {
		t.Errorf("EmbeddingText() = %q", got)
	}

	doc.Summary = "Revenue is up."
	if got := doc.EmbeddingText(); got != "Quarterly Report\nRevenue is up." {
		t.Errorf("EmbeddingText() = %q", got)
	}
}

func TestConcept_EmbeddingText(t *testing.T) {
	c := &Concept{Label: "Runway"}
	if got := c.EmbeddingText(); got != "Runway" {
		t.Errorf("EmbeddingText() = %q", got)
	}

	c.Summary = "Months of cash remaining."
	if got := c.EmbeddingText(); got != "Runway\nMonths of cash remaining." {
		t.Errorf("EmbeddingText() = %q", got)
	}
}
