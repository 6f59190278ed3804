package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the identifier of the embedding model in use.
	// It is recorded in vector fingerprints so stale vectors can be detected
	// after a model change.
	Model() string
}

// ClusterLabeler produces a short human-readable label for a group of
// related concepts. Implementations must be thread-safe for concurrent use.
type ClusterLabeler interface {
	// LabelCluster generates a 2-4 word label summarizing the given member
	// labels. Callers treat errors as non-fatal and fall back to the first
	// member's label.
	LabelCluster(ctx context.Context, memberLabels []string) (string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// ClusterLabeler instances, ensuring they share configuration and
// resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ClusterLabeler returns the cluster labeling service.
	// The returned ClusterLabeler is safe for concurrent use.
	ClusterLabeler() ClusterLabeler

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
