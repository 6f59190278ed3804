// Copyright 2025 Ontolite Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strconv"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Title must not be empty
//
// NOT validated (populated later):
//   - Vector / VectorFingerprint (empty until embedded)
//   - ID (0 is valid from database sequences)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTitle)
	}

	return nil
}

// ValidateConcept validates a Concept according to domain rules.
//
// Validation rules:
//   - Label must not be empty
//   - HierarchyLevel must be one of the defined levels
//
// NOT validated (populated by the pipeline):
//   - Vector / VectorFingerprint (empty until embedded)
//   - ParentId (0 means parented by the document root)
func ValidateConcept(concept *Concept) error {
	if concept == nil {
		return fmt.Errorf("%w: concept is nil", ErrInvalidConcept)
	}

	if concept.Label == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrEmptyConceptLabel)
	}

	if err := ValidateHierarchyLevel(concept.HierarchyLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, err)
	}

	return nil
}

// ValidateHierarchyLevel validates that a HierarchyLevel has a defined value.
func ValidateHierarchyLevel(level HierarchyLevel) error {
	switch level {
	case LevelDocument, LevelCluster, LevelRefinement, LevelConcept:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidHierarchyLevel, level)
	}
}

// SanitizeExtraction cleans an extraction batch before it is persisted.
// Malformed input is skipped, never fatal: concepts with empty labels are
// dropped, relations referencing unknown endpoints or crossing documents are
// dropped, and confidences are clamped to [0,1]. A document with zero
// surviving concepts simply produces a degenerate (empty) hierarchy.
func SanitizeExtraction(docID ID, concepts []*Concept, relations []*Relation) ([]*Concept, []*Relation) {
	keptConcepts := make([]*Concept, 0, len(concepts))
	known := make(map[ID]bool, len(concepts))

	for _, c := range concepts {
		if c == nil || c.Label == "" {
			continue
		}
		c.DocId = docID
		c.Confidence = clampUnit(c.Confidence)
		if c.HierarchyLevel == 0 {
			c.HierarchyLevel = LevelConcept
		}
		if c.Id == 0 {
			c.Id = IDFromContent(strconv.FormatUint(uint64(docID), 10) + "/" + c.Type + "/" + c.Label)
		}
		keptConcepts = append(keptConcepts, c)
		known[c.Id] = true
	}

	keptRelations := make([]*Relation, 0, len(relations))
	for _, r := range relations {
		if r == nil || r.Verb == "" {
			continue
		}
		if r.DocId != 0 && r.DocId != docID {
			continue
		}
		if !known[r.SrcId] || !known[r.DstId] {
			continue
		}
		r.DocId = docID
		r.Confidence = clampUnit(r.Confidence)
		keptRelations = append(keptRelations, r)
	}

	return keptConcepts, keptRelations
}

func clampUnit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
