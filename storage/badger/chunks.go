package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{
		backend: backend,
	}
}

// PutChunks stores chunk audits in a single transaction.
func (r *ChunkRepository) PutChunks(ctx context.Context, communityID string, audits ...*core.ChunkAudit) error {
	if len(audits) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, audit := range audits {
			key := makeChunkKey(communityID, audit.SourceID, audit.Index)
			if err := tx.Set(key, storage.MarshalChunkAudit(audit)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// GetChunks returns the audits of a source ordered by chunk index.
func (r *ChunkRepository) GetChunks(ctx context.Context, communityID, sourceID string) ([]*core.ChunkAudit, error) {
	audits := []*core.ChunkAudit{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkSourceKey(communityID, sourceID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				audit, err := storage.UnmarshalChunkAudit(val)
				if err != nil {
					return err
				}
				audits = append(audits, audit)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return audits, nil
}

// DeleteChunks removes every audit of a source.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, communityID, sourceID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return deletePrefix(tx, makeChunkSourceKey(communityID, sourceID))
	}, true)
}
