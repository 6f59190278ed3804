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

package mock

import "github.com/ontolite/ontolite/ai"

// MockProvider is a test double for ai.Provider.
// It aggregates mock embedder and labeler instances.
type MockProvider struct {
	embedder *MockEmbedder
	labeler  *MockLabeler
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockLabeler() to access concrete types for test
// assertions.
func NewMockProvider() ai.Provider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		labeler:  NewMockLabeler(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, labeler *MockLabeler) ai.Provider {
	return &MockProvider{
		embedder: embedder,
		labeler:  labeler,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// ClusterLabeler returns the mock labeler.
func (p *MockProvider) ClusterLabeler() ai.ClusterLabeler {
	return p.labeler
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockLabeler returns the underlying mock labeler for test assertions.
func (p *MockProvider) GetMockLabeler() *MockLabeler {
	return p.labeler
}
