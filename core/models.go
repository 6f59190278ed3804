package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SyntheticID generates the deterministic ID of a synthetic hierarchy node
// (cluster or refinement) from its document, node kind, and ordinal.
func SyntheticID(docID ID, kind string, ordinal int) ID {
	return IDFromContent(strconv.FormatUint(uint64(docID), 10) + "/" + kind + "/" + strconv.Itoa(ordinal))
}

// HierarchyLevel identifies a node's depth in the document hierarchy.
// Level 1 is reserved.
type HierarchyLevel int

const (
	// LevelDocument is the root of a document's hierarchy.
	LevelDocument HierarchyLevel = 0
	// LevelCluster is a synthetic node grouping structurally related concepts.
	LevelCluster HierarchyLevel = 2
	// LevelRefinement is an optional synthetic node subdividing a large cluster.
	LevelRefinement HierarchyLevel = 3
	// LevelConcept is a leaf concept extracted from source text.
	LevelConcept HierarchyLevel = 4
)

// Document represents an ingested source document. It owns its concepts and
// relations; deleting a document cascades to both.
type Document struct {
	Id                ID
	Title             string
	Summary           string
	Vector            []float32 // Embedding vector (populated by the vector store)
	VectorFingerprint string    // Provenance tag for Vector, empty until embedded
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EmbeddingText returns the text a document is embedded from.
func (d *Document) EmbeddingText() string {
	if d.Summary == "" {
		return d.Title
	}
	return d.Title + "\n" + d.Summary
}

// Concept is a node in a document's hierarchy. Leaf concepts come from the
// extraction collaborator; cluster and refinement concepts are synthesized by
// the hierarchy builder with generated IDs and labels.
type Concept struct {
	Id                ID
	DocId             ID
	Label             string
	Type              string // Open tag, e.g. "Person", "Metric", "Topic"
	HierarchyLevel    HierarchyLevel
	ParentId          ID // 0 = parented directly by the document root
	Confidence        float32
	Summary           string
	Vector            []float32
	VectorFingerprint string
	InsertedAt        time.Time
	UpdatedAt         time.Time
}

// EmbeddingText returns the text a concept is embedded from.
func (c *Concept) EmbeddingText() string {
	if c.Summary == "" {
		return c.Label
	}
	return c.Label + "\n" + c.Summary
}

// Synthetic reports whether the concept is a generated hierarchy node rather
// than an extracted leaf.
func (c *Concept) Synthetic() bool {
	return c.HierarchyLevel == LevelCluster || c.HierarchyLevel == LevelRefinement
}

// Relation is a directed typed edge between two concepts of the same
// document. Relations are clustering input only; they may contain cycles and
// are never required to form a tree.
type Relation struct {
	Id         ID
	DocId      ID
	SrcId      ID
	DstId      ID
	Verb       string
	Confidence float32
}

// Provenance event types recorded in the append-only event log.
const (
	EventDocumentIngested  = "document_ingested"
	EventHierarchyBuilt    = "hierarchy_built"
	EventVectorGenerated   = "vector_generated"
	EventVectorRegenerated = "vector_regenerated"
)

// ProvenanceEvent is one entry in a document's append-only audit log.
type ProvenanceEvent struct {
	Id        string // UUID
	DocId     ID
	EventType string
	Timestamp time.Time
	Actor     string // Who/what performed the action (model name, "pipeline", ...)
	Checksum  string // Fingerprint or digest of the affected state
	Metadata  map[string]string
}

// Match is a single nearest-neighbor hit from a vector similarity query.
type Match struct {
	Id          ID
	Score       float32
	Fingerprint string
}

// SearchResult is one ranked document in a hybrid query response, with the
// per-signal score breakdown.
type SearchResult struct {
	DocId         ID
	Title         string
	Score         float64
	MatchType     string
	TitleScore    float64
	ConceptScore  float64
	SemanticScore float64
	Concepts      []string // Labels of the document's matching concepts
}

// QueryResponse is the full response of a hybrid search query.
type QueryResponse struct {
	Query          string
	Results        []*SearchResult
	DocumentScores map[ID]float64
	Count          int
	Threshold      float64
}

// SimilarResponse is the response of a nearest-neighbor query, keyed either
// by the query object's ID or by raw query text.
type SimilarResponse struct {
	QueryId   ID
	QueryText string
	QueryType string
	Results   []Match
	Count     int
	Threshold float32
}
