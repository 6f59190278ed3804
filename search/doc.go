// Package search implements hybrid document ranking.
//
// A query is scored against every document through three independent
// signals: a tiered lexical match on the title, a confidence-weighted
// keyword match on the document's concept labels, and cosine similarity
// between the query embedding and stored vectors. The signals are fused
// with fixed weights and the fused score is cut at a hard threshold.
//
// Signal loss degrades instead of failing. When the query embedding is
// unavailable the semantic term is zero and ranking proceeds on lexical
// evidence alone. An empty query switches to engagement ordering, which
// ranks by recency and provenance activity rather than relevance.
package search
