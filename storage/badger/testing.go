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

package badger

import "github.com/ontolite/ontolite/storage"

// Stores bundles the repositories sharing one backend.
type Stores struct {
	Documents  storage.DocumentRepository
	Concepts   storage.ConceptRepository
	Relations  storage.RelationRepository
	Provenance storage.ProvenanceRepository
	Backend    *Backend
}

// Close closes all repositories and the backend.
func (s *Stores) Close() error {
	var firstErr error
	for _, c := range []interface{ Close() error }{s.Documents, s.Relations, s.Concepts, s.Provenance} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.Backend.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// NewStores opens a backend at path and wires all repositories to it.
func NewStores(path string) (*Stores, error) {
	return newStores(path, false)
}

// NewMemoryStores creates in-memory repositories for testing.
// Caller must Close when done.
func NewMemoryStores() (*Stores, error) {
	return newStores("", true)
}

func newStores(path string, inMemory bool) (*Stores, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	docs, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	concepts, err := NewConceptRepository(backend)
	if err != nil {
		docs.Close()
		backend.Close()
		return nil, err
	}

	relations, err := NewRelationRepository(backend)
	if err != nil {
		docs.Close()
		backend.Close()
		return nil, err
	}

	provenance, err := NewProvenanceRepository(backend)
	if err != nil {
		relations.Close()
		docs.Close()
		backend.Close()
		return nil, err
	}

	return &Stores{
		Documents:  docs,
		Concepts:   concepts,
		Relations:  relations,
		Provenance: provenance,
		Backend:    backend,
	}, nil
}
