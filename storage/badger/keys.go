package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ontolite/ontolite/core"
)

// Key prefixes for different data types
const (
	docRecordPrefix      = "docrec"
	docDatePrefix        = "docrecd"
	docIDSeq             = "docrecseq"
	conceptRecordPrefix  = "conrec"
	conceptDocPrefix     = "condoc"
	relationRecordPrefix = "relrec"
	relationDocPrefix    = "reldoc"
	relationIDSeq        = "relrecseq"
	provenancePrefix     = "provev"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", docRecordPrefix, id))
}

// makeDocumentDateKey generates a composite key for the document date index.
// Format: prefix:createdAt:id, BigEndian so lexicographic sort is time order.
func makeDocumentDateKey(createdAt time.Time, id core.ID) []byte {
	prefix := []byte(docDatePrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDocumentDateKey generates a partial key for date index seeks.
func makePartialDocumentDateKey(createdAt time.Time) []byte {
	prefix := []byte(docDatePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	return buf
}

// makeConceptKey generates a key for a concept by ID.
func makeConceptKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", conceptRecordPrefix, id))
}

// makeConceptDocKey generates a composite key for the document->concept index.
// Format: prefix:docID:conceptID
func makeConceptDocKey(docID, conceptID core.ID) []byte {
	prefix := []byte(conceptDocPrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(conceptID))
	return buf
}

// makePartialConceptDocKey generates a partial key for per-document concept scans.
func makePartialConceptDocKey(docID core.ID) []byte {
	prefix := []byte(conceptDocPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// makeRelationKey generates a key for a relation by ID.
func makeRelationKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", relationRecordPrefix, id))
}

// makeRelationDocKey generates a composite key for the document->relation index.
// Format: prefix:docID:relationID
func makeRelationDocKey(docID, relationID core.ID) []byte {
	prefix := []byte(relationDocPrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(relationID))
	return buf
}

// makePartialRelationDocKey generates a partial key for per-document relation scans.
func makePartialRelationDocKey(docID core.ID) []byte {
	prefix := []byte(relationDocPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// makeProvenanceKey generates a key for a provenance event. The key embeds
// docID then timestamp so per-document iteration yields time order; the
// event ID suffix keeps same-microsecond events distinct.
func makeProvenanceKey(docID core.ID, timestamp time.Time, eventID string) []byte {
	prefix := []byte(provenancePrefix + ":")
	suffix := eventID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	buf := make([]byte, len(prefix)+16+len(suffix))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	copy(buf[offset:], suffix)
	return buf
}

// makePartialProvenanceKey generates a partial key for per-document event scans.
func makePartialProvenanceKey(docID core.ID) []byte {
	prefix := []byte(provenancePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}
