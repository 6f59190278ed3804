package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
)

// RelationRepository implements storage.RelationRepository for BadgerDB.
type RelationRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.RelationRepository = (*RelationRepository)(nil)

// NewRelationRepository creates a new RelationRepository.
func NewRelationRepository(backend *Backend) (*RelationRepository, error) {
	idSeq, err := backend.GetSequence(relationIDSeq)
	if err != nil {
		return nil, err
	}

	return &RelationRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *RelationRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *RelationRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddRelations adds one or more relations to storage.
func (r *RelationRepository) AddRelations(ctx context.Context, relations ...*core.Relation) ([]*core.Relation, error) {
	for _, rel := range relations {
		if rel.Verb == "" || rel.SrcId == 0 || rel.DstId == 0 {
			return nil, fmt.Errorf("relation %d -[%s]-> %d: %w", rel.SrcId, rel.Verb, rel.DstId, core.ErrInvalidRelation)
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, rel := range relations {
			if rel.Id == 0 {
				nextID, err := r.idSeq.Next()
				if err != nil {
					return err
				}
				// BadgerDB sequences can return 0 on first call, so we skip it
				if nextID == 0 {
					nextID, err = r.idSeq.Next()
					if err != nil {
						return err
					}
				}
				rel.Id = core.ID(nextID)
			}

			if err := tx.Set(makeRelationKey(rel.Id), storage.MarshalRelation(rel)); err != nil {
				return err
			}
			if err := tx.Set(makeRelationDocKey(rel.DocId, rel.Id), storage.MarshalID(rel.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return relations, nil
}

// GetRelationsByDocument retrieves all relations belonging to a document.
func (r *RelationRepository) GetRelationsByDocument(ctx context.Context, docID core.ID) ([]*core.Relation, error) {
	var relations []*core.Relation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialRelationDocKey(docID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			id := core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
			rel, err := readRelation(tx, id)
			if err != nil {
				return err
			}
			if rel != nil {
				relations = append(relations, rel)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return relations, nil
}

// readRelation reads a single relation within a transaction.
// Returns nil (not an error) when the key is absent.
func readRelation(tx *badger.Txn, id core.ID) (*core.Relation, error) {
	item, err := tx.Get(makeRelationKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var rel *core.Relation
	err = item.Value(func(val []byte) error {
		var err error
		rel, err = storage.UnmarshalRelation(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// deleteRelationsForDocument removes all relation records and index entries
// for a document within the given transaction.
func deleteRelationsForDocument(tx *badger.Txn, docID core.ID) error {
	var indexKeys [][]byte
	var ids []core.ID

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialRelationDocKey(docID)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().KeyCopy(nil)
		indexKeys = append(indexKeys, key)
		ids = append(ids, core.ID(binary.BigEndian.Uint64(key[len(key)-8:])))
	}
	iter.Close()

	for _, id := range ids {
		if err := tx.Delete(makeRelationKey(id)); err != nil {
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
