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

// Package badger provides BadgerDB-backed implementations of the storage
// repository interfaces.
//
// Layout: each record type lives under its own key prefix, with secondary
// index keys (document date, document->concept, document->relation) as
// composite BigEndian keys so prefix iteration yields sorted results.
// Similarity search is a brute-force scan over primary records; the vector
// package layers an in-memory index on top for the hot path.
//
// The provenance log is append-only. Deleting a document cascades to its
// concepts, relations and index entries but never touches provenance keys.
package badger
