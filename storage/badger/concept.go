package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
)

// ConceptRepository implements storage.ConceptRepository for BadgerDB.
type ConceptRepository struct {
	backend *Backend
}

var _ storage.ConceptRepository = (*ConceptRepository)(nil)

// NewConceptRepository creates a new ConceptRepository.
func NewConceptRepository(backend *Backend) (*ConceptRepository, error) {
	return &ConceptRepository{backend: backend}, nil
}

// Close is a no-op; concept IDs are content-derived, not sequenced.
func (r *ConceptRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ConceptRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddConcepts adds one or more concepts to storage in a single transaction.
func (r *ConceptRepository) AddConcepts(ctx context.Context, concepts ...*core.Concept) ([]*core.Concept, error) {
	for _, c := range concepts {
		if err := core.ValidateConcept(c); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, c := range concepts {
			if c.Id == 0 {
				c.Id = core.IDFromContent(strconv.FormatUint(uint64(c.DocId), 10) + "/" + c.Type + "/" + c.Label)
			}
			if c.InsertedAt.IsZero() {
				c.InsertedAt = time.Now().UTC()
			}
			c.UpdatedAt = c.InsertedAt

			if err := writeConcept(tx, c); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return concepts, nil
}

// UpdateConcepts updates existing concepts.
func (r *ConceptRepository) UpdateConcepts(ctx context.Context, concepts ...*core.Concept) ([]*core.Concept, error) {
	for _, c := range concepts {
		if err := core.ValidateConcept(c); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, c := range concepts {
			old, err := readConcept(tx, c.Id)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			c.UpdatedAt = time.Now().UTC()
			if c.InsertedAt.IsZero() {
				c.InsertedAt = old.InsertedAt
			}

			if err := writeConcept(tx, c); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return concepts, nil
}

// GetConcept retrieves a single concept by ID.
func (r *ConceptRepository) GetConcept(ctx context.Context, id core.ID) (*core.Concept, error) {
	var c *core.Concept
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		c, err = readConcept(tx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetConcepts retrieves multiple concepts by their IDs.
// Missing concepts are skipped.
func (r *ConceptRepository) GetConcepts(ctx context.Context, ids ...core.ID) ([]*core.Concept, error) {
	concepts := make([]*core.Concept, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			c, err := readConcept(tx, id)
			if err != nil {
				return err
			}
			if c != nil {
				concepts = append(concepts, c)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return concepts, nil
}

// GetConceptsByDocument retrieves all concepts belonging to a document,
// including synthetic hierarchy nodes, via the document index.
func (r *ConceptRepository) GetConceptsByDocument(ctx context.Context, docID core.ID) ([]*core.Concept, error) {
	var concepts []*core.Concept
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		concepts, err = readConceptsForDocument(tx, docID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return concepts, nil
}

// ListConcepts retrieves all concepts across documents.
func (r *ConceptRepository) ListConcepts(ctx context.Context) ([]*core.Concept, error) {
	var concepts []*core.Concept
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(conceptRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var c *core.Concept
			err := iter.Item().Value(func(val []byte) error {
				var err error
				c, err = storage.UnmarshalConcept(val)
				return err
			})
			if err != nil {
				return err
			}
			concepts = append(concepts, c)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return concepts, nil
}

// SwapHierarchy atomically replaces every concept of a document with the
// given set. Readers never observe a mix of the old and new hierarchy.
// Vectors present on surviving old concepts are carried over when the
// replacement concept has none, so re-embedding is only needed for new
// or changed nodes.
func (r *ConceptRepository) SwapHierarchy(ctx context.Context, docID core.ID, concepts []*core.Concept) error {
	for _, c := range concepts {
		if err := core.ValidateConcept(c); err != nil {
			return err
		}
		if c.Id == 0 {
			return fmt.Errorf("concept %q has no ID: %w", c.Label, core.ErrInvalidConcept)
		}
		if c.DocId != docID {
			return fmt.Errorf("concept %d belongs to document %d, not %d: %w", c.Id, c.DocId, docID, core.ErrInvalidConcept)
		}
	}

	now := time.Now().UTC()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readConceptsForDocument(tx, docID)
		if err != nil {
			return err
		}
		oldByID := make(map[core.ID]*core.Concept, len(old))
		for _, c := range old {
			oldByID[c.Id] = c
		}

		if err := deleteConceptsForDocument(tx, docID); err != nil {
			return err
		}

		for _, c := range concepts {
			if prev, ok := oldByID[c.Id]; ok {
				if len(c.Vector) == 0 && len(prev.Vector) > 0 {
					c.Vector = prev.Vector
					c.VectorFingerprint = prev.VectorFingerprint
				}
				c.InsertedAt = prev.InsertedAt
			}
			if c.InsertedAt.IsZero() {
				c.InsertedAt = now
			}
			c.UpdatedAt = now
			if err := writeConcept(tx, c); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// FindSimilarConcepts delegates to the backend's brute-force scan.
func (r *ConceptRepository) FindSimilarConcepts(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]core.Match, error) {
	return r.backend.findSimilar(conceptRecordPrefix, vector, minSimilarity, limit, func(val []byte) (core.ID, []float32, string, error) {
		c, err := storage.UnmarshalConcept(val)
		if err != nil {
			return 0, nil, "", err
		}
		return c.Id, c.Vector, c.VectorFingerprint, nil
	})
}

// readConcept reads a single concept within a transaction.
// Returns nil (not an error) when the key is absent.
func readConcept(tx *badger.Txn, id core.ID) (*core.Concept, error) {
	item, err := tx.Get(makeConceptKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var c *core.Concept
	err = item.Value(func(val []byte) error {
		var err error
		c, err = storage.UnmarshalConcept(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func writeConcept(tx *badger.Txn, c *core.Concept) error {
	if err := tx.Set(makeConceptKey(c.Id), storage.MarshalConcept(c)); err != nil {
		return err
	}
	return tx.Set(makeConceptDocKey(c.DocId, c.Id), storage.MarshalID(c.Id))
}

func readConceptsForDocument(tx *badger.Txn, docID core.ID) ([]*core.Concept, error) {
	var concepts []*core.Concept
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialConceptDocKey(docID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		id := core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
		c, err := readConcept(tx, id)
		if err != nil {
			return nil, err
		}
		if c != nil {
			concepts = append(concepts, c)
		}
	}
	return concepts, nil
}

// deleteConceptsForDocument removes all concept records and index entries
// for a document within the given transaction.
func deleteConceptsForDocument(tx *badger.Txn, docID core.ID) error {
	var indexKeys [][]byte
	var ids []core.ID

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialConceptDocKey(docID)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().KeyCopy(nil)
		indexKeys = append(indexKeys, key)
		ids = append(ids, core.ID(binary.BigEndian.Uint64(key[len(key)-8:])))
	}
	iter.Close()

	for _, id := range ids {
		if err := tx.Delete(makeConceptKey(id)); err != nil {
			return err
		}
	}
	for _, key := range indexKeys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
