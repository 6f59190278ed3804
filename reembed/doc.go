// Package reembed provides functionality for regenerating stored vectors
// with new or updated embedding models.
//
// This package supports batch processing of documents and concepts,
// progress tracking, retry logic with exponential backoff, and fingerprint
// rotation so regenerated vectors are traceable in the provenance log.
package reembed
