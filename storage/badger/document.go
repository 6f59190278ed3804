package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(docIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocuments adds one or more documents to storage.
func (r *DocumentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if doc.Id == 0 {
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
				doc.Id = core.ID(nextID)
			}

			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = time.Now().UTC()
			}
			doc.UpdatedAt = doc.CreatedAt

			if err := writeDocument(tx, doc); err != nil {
				return err
			}

			// Update date index
			dateKey := makeDocumentDateKey(doc.CreatedAt, doc.Id)
			if err := tx.Set(dateKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateDocuments updates existing documents.
func (r *DocumentRepository) UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			old, err := readDocument(tx, doc.Id)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			doc.UpdatedAt = time.Now().UTC()
			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = old.CreatedAt
			}

			if err := writeDocument(tx, doc); err != nil {
				return err
			}

			// Move date index entry if CreatedAt changed
			if !old.CreatedAt.Equal(doc.CreatedAt) {
				if err := tx.Delete(makeDocumentDateKey(old.CreatedAt, old.Id)); err != nil {
					return err
				}
				if err := tx.Set(makeDocumentDateKey(doc.CreatedAt, doc.Id), storage.MarshalID(doc.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocuments retrieves multiple documents by their IDs.
// Missing documents are skipped.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	docs := make([]*core.Document, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ListDocuments retrieves all documents.
func (r *DocumentRepository) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// GetRecentDocuments retrieves up to limit documents, newest first.
func (r *DocumentRepository) GetRecentDocuments(ctx context.Context, limit int) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(docDatePrefix + ":")
		// Seek from the far future so the reverse iterator starts at the
		// newest date index entry.
		seekKey := makePartialDocumentDateKey(time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))

		for iter.Seek(seekKey); iter.Valid() && len(docs) < limit; iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}
			id := core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteDocument removes a document along with its concepts, relations and
// index entries. Provenance events are retained as the audit trail.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := deleteConceptsForDocument(tx, id); err != nil {
			return err
		}
		if err := deleteRelationsForDocument(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentDateKey(doc.CreatedAt, doc.Id)); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindSimilarDocuments delegates to the backend's brute-force scan.
func (r *DocumentRepository) FindSimilarDocuments(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]core.Match, error) {
	return r.backend.findSimilar(docRecordPrefix, vector, minSimilarity, limit, func(val []byte) (core.ID, []float32, string, error) {
		doc, err := storage.UnmarshalDocument(val)
		if err != nil {
			return 0, nil, "", err
		}
		return doc.Id, doc.Vector, doc.VectorFingerprint, nil
	})
}

// readDocument reads a single document within a transaction.
// Returns nil (not an error) when the key is absent.
func readDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func writeDocument(tx *badger.Txn, doc *core.Document) error {
	return tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc))
}
