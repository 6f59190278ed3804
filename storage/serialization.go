// Copyright 2025 Ontolite Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/ontolite/ontolite/core"
)

// Hand-written MUS serializers for the persisted entities. Field order is the
// wire format; changing it breaks previously persisted databases.

// IDMUS serializes core.ID values.
var IDMUS = idSer{}

type idSer struct{}

func (idSer) Marshal(v core.ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idSer) Unmarshal(bs []byte) (core.ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idSer) Size(v core.ID) int {
	return varint.Uint64.Size(uint64(v))
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, IDMUS.Size(id))
	IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := IDMUS.Unmarshal(data)
	return id, err
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	blob := EncodeVector(doc.Vector)
	size := IDMUS.Size(doc.Id) +
		ord.String.Size(doc.Title) +
		ord.String.Size(doc.Summary) +
		sizeBytes(blob) +
		ord.String.Size(doc.VectorFingerprint) +
		sizeTime(doc.CreatedAt) +
		sizeTime(doc.UpdatedAt)

	bs := make([]byte, size)
	n := IDMUS.Marshal(doc.Id, bs)
	n += ord.String.Marshal(doc.Title, bs[n:])
	n += ord.String.Marshal(doc.Summary, bs[n:])
	n += marshalBytes(blob, bs[n:])
	n += ord.String.Marshal(doc.VectorFingerprint, bs[n:])
	n += marshalTime(doc.CreatedAt, bs[n:])
	marshalTime(doc.UpdatedAt, bs[n:])
	return bs
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	var (
		doc  core.Document
		blob []byte
		m    int
		err  error
	)
	n := 0
	if doc.Id, m, err = IDMUS.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if doc.Title, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if doc.Summary, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if blob, m, err = unmarshalBytes(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if doc.Vector, err = DecodeVector(blob); err != nil {
		return nil, err
	}
	if doc.VectorFingerprint, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if doc.CreatedAt, m, err = unmarshalTime(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if doc.UpdatedAt, _, err = unmarshalTime(data[n:]); err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalConcept serializes a Concept to bytes.
func MarshalConcept(concept *core.Concept) []byte {
	blob := EncodeVector(concept.Vector)
	size := IDMUS.Size(concept.Id) +
		IDMUS.Size(concept.DocId) +
		ord.String.Size(concept.Label) +
		ord.String.Size(concept.Type) +
		varint.Int.Size(int(concept.HierarchyLevel)) +
		IDMUS.Size(concept.ParentId) +
		raw.Float32.Size(concept.Confidence) +
		ord.String.Size(concept.Summary) +
		sizeBytes(blob) +
		ord.String.Size(concept.VectorFingerprint) +
		sizeTime(concept.InsertedAt) +
		sizeTime(concept.UpdatedAt)

	bs := make([]byte, size)
	n := IDMUS.Marshal(concept.Id, bs)
	n += IDMUS.Marshal(concept.DocId, bs[n:])
	n += ord.String.Marshal(concept.Label, bs[n:])
	n += ord.String.Marshal(concept.Type, bs[n:])
	n += varint.Int.Marshal(int(concept.HierarchyLevel), bs[n:])
	n += IDMUS.Marshal(concept.ParentId, bs[n:])
	n += raw.Float32.Marshal(concept.Confidence, bs[n:])
	n += ord.String.Marshal(concept.Summary, bs[n:])
	n += marshalBytes(blob, bs[n:])
	n += ord.String.Marshal(concept.VectorFingerprint, bs[n:])
	n += marshalTime(concept.InsertedAt, bs[n:])
	marshalTime(concept.UpdatedAt, bs[n:])
	return bs
}

// UnmarshalConcept deserializes a Concept from bytes.
func UnmarshalConcept(data []byte) (*core.Concept, error) {
	var (
		concept core.Concept
		blob    []byte
		level   int
		m       int
		err     error
	)
	n := 0
	if concept.Id, m, err = IDMUS.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if concept.DocId, m, err = IDMUS.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if concept.Label, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if concept.Type, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if level, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	concept.HierarchyLevel = core.HierarchyLevel(level)
	n += m
	if concept.ParentId, m, err = IDMUS.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if concept.Confidence, m, err = raw.Float32.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if concept.Summary, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if blob, m, err = unmarshalBytes(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if concept.Vector, err = DecodeVector(blob); err != nil {
		return nil, err
	}
	if concept.VectorFingerprint, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if concept.InsertedAt, m, err = unmarshalTime(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if concept.UpdatedAt, _, err = unmarshalTime(data[n:]); err != nil {
		return nil, err
	}
	return &concept, nil
}

// MarshalRelation serializes a Relation to bytes.
func MarshalRelation(relation *core.Relation) []byte {
	size := IDMUS.Size(relation.Id) +
		IDMUS.Size(relation.DocId) +
		IDMUS.Size(relation.SrcId) +
		IDMUS.Size(relation.DstId) +
		ord.String.Size(relation.Verb) +
		raw.Float32.Size(relation.Confidence)

	bs := make([]byte, size)
	n := IDMUS.Marshal(relation.Id, bs)
	n += IDMUS.Marshal(relation.DocId, bs[n:])
	n += IDMUS.Marshal(relation.SrcId, bs[n:])
	n += IDMUS.Marshal(relation.DstId, bs[n:])
	n += ord.String.Marshal(relation.Verb, bs[n:])
	raw.Float32.Marshal(relation.Confidence, bs[n:])
	return bs
}

// UnmarshalRelation deserializes a Relation from bytes.
func UnmarshalRelation(data []byte) (*core.Relation, error) {
	var (
		relation core.Relation
		m        int
		err      error
	)
	n := 0
	if relation.Id, m, err = IDMUS.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if relation.DocId, m, err = IDMUS.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if relation.SrcId, m, err = IDMUS.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if relation.DstId, m, err = IDMUS.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if relation.Verb, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if relation.Confidence, _, err = raw.Float32.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	return &relation, nil
}

// MarshalProvenanceEvent serializes a ProvenanceEvent to bytes.
func MarshalProvenanceEvent(event *core.ProvenanceEvent) []byte {
	size := ord.String.Size(event.Id) +
		IDMUS.Size(event.DocId) +
		ord.String.Size(event.EventType) +
		sizeTime(event.Timestamp) +
		ord.String.Size(event.Actor) +
		ord.String.Size(event.Checksum) +
		sizeMetadata(event.Metadata)

	bs := make([]byte, size)
	n := ord.String.Marshal(event.Id, bs)
	n += IDMUS.Marshal(event.DocId, bs[n:])
	n += ord.String.Marshal(event.EventType, bs[n:])
	n += marshalTime(event.Timestamp, bs[n:])
	n += ord.String.Marshal(event.Actor, bs[n:])
	n += ord.String.Marshal(event.Checksum, bs[n:])
	marshalMetadata(event.Metadata, bs[n:])
	return bs
}

// UnmarshalProvenanceEvent deserializes a ProvenanceEvent from bytes.
func UnmarshalProvenanceEvent(data []byte) (*core.ProvenanceEvent, error) {
	var (
		event core.ProvenanceEvent
		m     int
		err   error
	)
	n := 0
	if event.Id, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if event.DocId, m, err = IDMUS.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if event.EventType, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if event.Timestamp, m, err = unmarshalTime(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if event.Actor, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if event.Checksum, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if event.Metadata, _, err = unmarshalMetadata(data[n:]); err != nil {
		return nil, err
	}
	return &event, nil
}

// Timestamps persist as Unix microseconds.

func marshalTime(t time.Time, bs []byte) int {
	if t.IsZero() {
		return varint.Int64.Marshal(0, bs)
	}
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	if v == 0 {
		return time.Time{}, n, nil
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	if t.IsZero() {
		return varint.Int64.Size(0)
	}
	return varint.Int64.Size(t.UnixMicro())
}

// Raw byte blobs persist as a varint length prefix plus the bytes.

func marshalBytes(v []byte, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	n += copy(bs[n:], v)
	return n
}

func unmarshalBytes(bs []byte) ([]byte, int, error) {
	l, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if l < 0 || n+l > len(bs) {
		return nil, n, ErrTruncatedData
	}
	if l == 0 {
		return nil, n, nil
	}
	out := make([]byte, l)
	copy(out, bs[n:n+l])
	return out, n + l, nil
}

func sizeBytes(v []byte) int {
	return varint.Int.Size(len(v)) + len(v)
}

// Metadata maps persist with sorted keys for a deterministic wire form.

func marshalMetadata(m map[string]string, bs []byte) int {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := varint.Int.Marshal(len(keys), bs)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return n
}

func unmarshalMetadata(bs []byte) (map[string]string, int, error) {
	l, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if l < 0 {
		return nil, n, ErrTruncatedData
	}
	if l == 0 {
		return nil, n, nil
	}
	m := make(map[string]string, l)
	for i := 0; i < l; i++ {
		k, kn, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, err
		}
		n += kn
		v, vn, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, err
		}
		n += vn
		m[k] = v
	}
	return m, n, nil
}

func sizeMetadata(m map[string]string) int {
	size := varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return size
}
