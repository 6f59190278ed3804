package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrConceptRepositoryRequired is returned when a concept repository is not provided.
	ErrConceptRepositoryRequired = errors.New("concept repository required")

	// ErrRelationRepositoryRequired is returned when a relation repository is not provided.
	ErrRelationRepositoryRequired = errors.New("relation repository required")

	// ErrProvenanceRepositoryRequired is returned when a provenance repository is not provided.
	ErrProvenanceRepositoryRequired = errors.New("provenance repository required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrBuilderRequired is returned when a hierarchy builder is not provided.
	ErrBuilderRequired = errors.New("hierarchy builder required")
)
