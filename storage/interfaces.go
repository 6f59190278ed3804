package storage

import (
	"context"

	"github.com/ontolite/ontolite/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository

	// AddDocuments adds one or more documents to storage.
	// For documents with ID=0, generates new IDs from sequence.
	// Sets CreatedAt/UpdatedAt timestamps.
	// Returns the documents with generated IDs populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments updates existing documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// ListDocuments retrieves all documents.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// GetRecentDocuments retrieves the N most recently created documents,
	// most recent first.
	GetRecentDocuments(ctx context.Context, limit int) ([]*core.Document, error)

	// DeleteDocument removes a document and cascades to its concepts and
	// relations. The provenance log is retained for audit.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// FindSimilarDocuments finds documents whose vectors are similar to the
	// given vector. Returns matches with similarity >= minSimilarity, up to
	// limit results, ordered by similarity (highest first). Documents without
	// vectors are excluded.
	FindSimilarDocuments(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]core.Match, error)
}

// ConceptRepository provides operations for managing concepts.
type ConceptRepository interface {
	Repository

	// AddConcepts adds one or more concepts to storage in a single
	// transaction. Concepts with ID=0 get content-based IDs.
	// Sets InsertedAt/UpdatedAt timestamps.
	AddConcepts(ctx context.Context, concepts ...*core.Concept) ([]*core.Concept, error)

	// UpdateConcepts updates existing concepts.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any concept doesn't exist.
	UpdateConcepts(ctx context.Context, concepts ...*core.Concept) ([]*core.Concept, error)

	// GetConcept retrieves a single concept by ID.
	// Returns ErrNotFound if the concept doesn't exist.
	GetConcept(ctx context.Context, id core.ID) (*core.Concept, error)

	// GetConcepts retrieves multiple concepts by their IDs.
	// Returns only the concepts that exist (no error for missing concepts).
	GetConcepts(ctx context.Context, ids ...core.ID) ([]*core.Concept, error)

	// GetConceptsByDocument retrieves all concepts belonging to a document.
	GetConceptsByDocument(ctx context.Context, docID core.ID) ([]*core.Concept, error)

	// ListConcepts retrieves all concepts across documents.
	ListConcepts(ctx context.Context) ([]*core.Concept, error)

	// SwapHierarchy atomically replaces a document's concept set with the
	// hierarchy-tagged set produced by a build. Readers observe either the
	// previous flat set or the finished tree, never a partial build.
	SwapHierarchy(ctx context.Context, docID core.ID, concepts []*core.Concept) error

	// FindSimilarConcepts finds concepts whose vectors are similar to the
	// given vector. Same contract as FindSimilarDocuments.
	FindSimilarConcepts(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]core.Match, error)
}

// RelationRepository provides operations for managing relations.
type RelationRepository interface {
	Repository

	// AddRelations adds one or more relations to storage.
	// Relations with ID=0 get sequence-generated IDs.
	AddRelations(ctx context.Context, relations ...*core.Relation) ([]*core.Relation, error)

	// GetRelationsByDocument retrieves all relations belonging to a document.
	GetRelationsByDocument(ctx context.Context, docID core.ID) ([]*core.Relation, error)
}

// ProvenanceRepository provides the append-only provenance/event log.
// Events are never updated or deleted; they survive document deletion.
type ProvenanceRepository interface {
	Repository

	// AppendEvent appends an event to the log. The event's ID and timestamp
	// must already be set by the caller.
	AppendEvent(ctx context.Context, event *core.ProvenanceEvent) error

	// GetEventsByDocument retrieves a document's events ordered by timestamp
	// ascending.
	GetEventsByDocument(ctx context.Context, docID core.ID) ([]*core.ProvenanceEvent, error)

	// CountEventsByDocument returns the number of events logged for a
	// document. Used as the frequency term of engagement ranking.
	CountEventsByDocument(ctx context.Context, docID core.ID) (int, error)
}
