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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidConcept indicates a Concept failed validation.
	ErrInvalidConcept = errors.New("invalid concept")

	// ErrInvalidRelation indicates a Relation failed validation.
	ErrInvalidRelation = errors.New("invalid relation")

	// ErrEmptyTitle indicates the document Title field is empty.
	ErrEmptyTitle = errors.New("document title cannot be empty")

	// ErrEmptyConceptLabel indicates the concept Label field is empty.
	ErrEmptyConceptLabel = errors.New("concept label cannot be empty")

	// ErrInvalidHierarchyLevel indicates an unknown hierarchy level value.
	ErrInvalidHierarchyLevel = errors.New("invalid hierarchy level")

	// ErrInvalidFingerprint indicates a malformed vector fingerprint string.
	ErrInvalidFingerprint = errors.New("invalid vector fingerprint")
)
