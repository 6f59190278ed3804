// Package vector owns embedding generation and nearest-neighbor queries.
//
// Vectors live with their owning document or concept in the primary store;
// the Index is a derived, rebuildable in-memory mirror published through an
// atomically swapped snapshot. Queries prefer the index and fall back to a
// brute-force primary scan while it is cold. Every generated vector carries
// a fingerprint binding it to the model, width, content hash and time that
// produced it, and each generation appends a provenance event.
package vector
