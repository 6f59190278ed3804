// Package ingestion provides pipeline orchestration for document intake.
//
// The Pipeline type manages the ingestion workflow for documents and their
// extracted concepts, including:
//   - Persisting the document, concepts, and relations
//   - Organizing concepts into a hierarchy asynchronously
//   - Generating embeddings asynchronously
//
// Background work is performed on worker pools, one chain per document at
// a time. Errors during async processing are logged but do not fail the
// ingestion operation.
package ingestion
