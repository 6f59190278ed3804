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


// Package storage provides the storage abstraction layer for ontolite.
//
// This package defines repository interfaces that decouple storage
// implementation from the hierarchy builder, vector store, and ranking
// engine. Different backends (BadgerDB, in-memory, etc.) can be used
// interchangeably.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces to enforce
// abstraction:
//
//	docs, err := badger.NewDocumentRepository(backend) // storage.DocumentRepository
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Architecture
//
//   - DocumentRepository: documents plus document-level vector scans
//   - ConceptRepository: concepts, the per-document hierarchy swap, and
//     concept-level vector scans
//   - RelationRepository: clustering input edges
//   - ProvenanceRepository: the append-only audit/event log
//
// The backend's brute-force vector scans are the source of truth for
// similarity queries; the in-memory index in the vector package is a derived,
// rebuildable cache over them.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support.
package storage
