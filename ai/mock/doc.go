// Package mock provides deterministic test doubles for the ai interfaces.
//
// Embeddings are hash-derived so the same text always yields the same
// vector; labels are derived from the first member label. Both doubles
// accept function-field overrides and count calls for assertions.
package mock
