package vector

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
)

// Kind selects which object class a vector query runs against.
type Kind string

const (
	KindDocument Kind = "document"
	KindConcept  Kind = "concept"
)

// entry is one indexed vector.
type entry struct {
	id          core.ID
	vector      []float32
	fingerprint string
}

// snapshot is an immutable view of the index. Readers load it atomically and
// never see a partial update.
type snapshot struct {
	ready   bool
	entries map[Kind][]entry
}

// Index is a rebuildable in-memory mirror of the vectors held by the primary
// store. Reads are lock-free against an atomically swapped snapshot; writers
// are serialized and publish full copies. The index is a disposable cache:
// it can always be rebuilt from the repositories, and callers fall back to
// the primary store scan while it is not ready.
type Index struct {
	current atomic.Value // *snapshot
	mu      sync.Mutex   // serializes writers

	docs     storage.DocumentRepository
	concepts storage.ConceptRepository
	logger   *slog.Logger
}

// NewIndex creates an empty, not-yet-ready index over the repositories.
func NewIndex(docs storage.DocumentRepository, concepts storage.ConceptRepository) *Index {
	idx := &Index{
		docs:     docs,
		concepts: concepts,
		logger:   slog.Default().With("component", "vector-index"),
	}
	idx.current.Store(&snapshot{entries: map[Kind][]entry{}})
	return idx
}

// Ready reports whether the index has been built at least once.
func (idx *Index) Ready() bool {
	return idx.load().ready
}

// Len returns the number of indexed vectors of a kind.
func (idx *Index) Len(kind Kind) int {
	return len(idx.load().entries[kind])
}

// Rebuild repopulates the index from the primary store. Objects without
// vectors are skipped. The new snapshot becomes visible atomically.
func (idx *Index) Rebuild(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	docs, err := idx.docs.ListDocuments(ctx)
	if err != nil {
		return err
	}
	concepts, err := idx.concepts.ListConcepts(ctx)
	if err != nil {
		return err
	}

	next := &snapshot{ready: true, entries: map[Kind][]entry{}}
	for _, d := range docs {
		if len(d.Vector) == 0 {
			continue
		}
		next.entries[KindDocument] = append(next.entries[KindDocument], entry{
			id: d.Id, vector: d.Vector, fingerprint: d.VectorFingerprint,
		})
	}
	for _, c := range concepts {
		if len(c.Vector) == 0 {
			continue
		}
		next.entries[KindConcept] = append(next.entries[KindConcept], entry{
			id: c.Id, vector: c.Vector, fingerprint: c.VectorFingerprint,
		})
	}

	idx.current.Store(next)
	idx.logger.Debug("rebuilt vector index",
		"documents", len(next.entries[KindDocument]),
		"concepts", len(next.entries[KindConcept]))
	return nil
}

// Upsert publishes one vector into the index, replacing any previous entry
// for the same object. Cheap relative to Rebuild: only the touched kind's
// slice is copied.
func (idx *Index) Upsert(kind Kind, id core.ID, vector []float32, fingerprint string) {
	if len(vector) == 0 {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	prev := idx.load()
	next := &snapshot{ready: prev.ready, entries: make(map[Kind][]entry, len(prev.entries))}
	for k, v := range prev.entries {
		if k != kind {
			next.entries[k] = v
		}
	}

	updated := make([]entry, 0, len(prev.entries[kind])+1)
	for _, e := range prev.entries[kind] {
		if e.id != id {
			updated = append(updated, e)
		}
	}
	updated = append(updated, entry{id: id, vector: vector, fingerprint: fingerprint})
	next.entries[kind] = updated

	idx.current.Store(next)
}

// Search runs a linear cosine scan over the indexed vectors of a kind.
// The second return value is false when the index has never been built;
// callers should then fall back to the primary store.
func (idx *Index) Search(kind Kind, vector []float32, limit int, threshold float32) ([]core.Match, bool) {
	snap := idx.load()
	if !snap.ready {
		return nil, false
	}

	var matches []core.Match
	for _, e := range snap.entries[kind] {
		score := core.Cosine(vector, e.vector)
		if score >= threshold {
			matches = append(matches, core.Match{Id: e.id, Score: score, Fingerprint: e.fingerprint})
		}
	}

	slices.SortFunc(matches, func(a, b core.Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, true
}

func (idx *Index) load() *snapshot {
	return idx.current.Load().(*snapshot)
}
