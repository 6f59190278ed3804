package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/storage"
)

// ProvenanceRepository implements storage.ProvenanceRepository for BadgerDB.
// The event log is append-only: nothing ever deletes its keys, so events
// outlive the documents they describe.
type ProvenanceRepository struct {
	backend *Backend
}

var _ storage.ProvenanceRepository = (*ProvenanceRepository)(nil)

// NewProvenanceRepository creates a new ProvenanceRepository.
func NewProvenanceRepository(backend *Backend) (*ProvenanceRepository, error) {
	return &ProvenanceRepository{backend: backend}, nil
}

// Close is a no-op; the event log holds no sequences.
func (s *ProvenanceRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *ProvenanceRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// AppendEvent stores a provenance event. A missing ID or timestamp is
// filled in here so callers can construct events tersely.
func (s *ProvenanceRepository) AppendEvent(ctx context.Context, event *core.ProvenanceEvent) error {
	if event.Id == "" {
		event.Id = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeProvenanceKey(event.DocId, event.Timestamp, event.Id)
		if err := tx.Set(key, storage.MarshalProvenanceEvent(event)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetEventsByDocument returns all events for a document in time order.
func (s *ProvenanceRepository) GetEventsByDocument(ctx context.Context, docID core.ID) ([]*core.ProvenanceEvent, error) {
	var events []*core.ProvenanceEvent
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialProvenanceKey(docID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var ev *core.ProvenanceEvent
			err := iter.Item().Value(func(val []byte) error {
				var err error
				ev, err = storage.UnmarshalProvenanceEvent(val)
				return err
			})
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CountEventsByDocument returns the number of events for a document
// without decoding the records.
func (s *ProvenanceRepository) CountEventsByDocument(ctx context.Context, docID core.ID) (int, error) {
	var count int
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialProvenanceKey(docID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}
