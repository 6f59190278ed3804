package vector

import "errors"

var (
	// ErrNoVector is returned by Similar when the query object has no
	// embedding (generation failed or has not run yet).
	ErrNoVector = errors.New("vector: object has no embedding")

	// ErrUnknownKind is returned for kinds other than document or concept.
	ErrUnknownKind = errors.New("vector: unknown object kind")

	// ErrEmbeddingFailed is returned by SimilarByText when the query text
	// cannot be embedded. Callers that can degrade to lexical scoring
	// should treat it as non-fatal.
	ErrEmbeddingFailed = errors.New("vector: query embedding failed")
)
