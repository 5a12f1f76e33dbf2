package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// ResultRepository implements storage.ResultRepository for BadgerDB.
type ResultRepository struct {
	backend *Backend
}

var _ storage.ResultRepository = (*ResultRepository)(nil)

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(backend *Backend) *ResultRepository {
	return &ResultRepository{
		backend: backend,
	}
}

// PutResult stores or replaces the record for a source.
func (r *ResultRepository) PutResult(ctx context.Context, communityID, sourceID string, record *core.ExtractedRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeResultKey(communityID, sourceID), storage.MarshalRecord(record))
	}, true)
}

// GetResult retrieves the record for a source.
func (r *ResultRepository) GetResult(ctx context.Context, communityID, sourceID string) (*core.ExtractedRecord, error) {
	var record *core.ExtractedRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeResultKey(communityID, sourceID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			record, unmarshalErr = storage.UnmarshalRecord(val)
			return unmarshalErr
		})
	}, false)
	return record, err
}

// DeleteResult removes the record for a source.
func (r *ResultRepository) DeleteResult(ctx context.Context, communityID, sourceID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Delete(makeResultKey(communityID, sourceID))
	}, true)
}
