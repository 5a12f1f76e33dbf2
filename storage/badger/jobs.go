// Copyright 2025 Poiesic Systems
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


package badger

import (
	"bytes"
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) *JobRepository {
	return &JobRepository{
		backend: backend,
	}
}

// CreateJob stores a new job.
func (r *JobRepository) CreateJob(ctx context.Context, job *core.Job) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.CommunityID, job.SourceID)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return tx.Set(key, storage.MarshalJob(job))
	}, true)
}

// UpdateJob replaces an existing job.
func (r *JobRepository) UpdateJob(ctx context.Context, job *core.Job) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.CommunityID, job.SourceID)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return tx.Set(key, storage.MarshalJob(job))
	}, true)
}

// GetJob retrieves a single job.
func (r *JobRepository) GetJob(ctx context.Context, communityID, sourceID string) (*core.Job, error) {
	var job *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		job, err = readJob(tx, makeJobKey(communityID, sourceID))
		return err
	}, false)
	return job, err
}

// ListJobs returns a page of a community's jobs ordered by source ID.
func (r *JobRepository) ListJobs(ctx context.Context, communityID string, limit int, cursor string) ([]*core.Job, string, error) {
	if limit < 0 {
		return nil, "", storage.ErrInvalidQuery
	}

	prefix := makeCommunityKey(jobPrefix, communityID)
	jobs := []*core.Job{}
	next := ""

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := prefix
		if cursor != "" {
			start = makeJobKey(communityID, cursor)
		}

		for iter.Seek(start); iter.Valid(); iter.Next() {
			item := iter.Item()
			if cursor != "" && bytes.Equal(item.Key(), start) {
				continue
			}
			if limit > 0 && len(jobs) == limit {
				next = jobs[len(jobs)-1].SourceID
				return nil
			}

			err := item.Value(func(val []byte) error {
				job, err := storage.UnmarshalJob(val)
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, "", err
	}

	return jobs, next, nil
}

// DeleteJob removes a job. Results and chunk audits are left to their own
// repositories.
func (r *JobRepository) DeleteJob(ctx context.Context, communityID, sourceID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(communityID, sourceID)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return tx.Delete(key)
	}, true)
}

// readJob reads a job from the database.
// Returns storage.ErrNotFound if the key doesn't exist.
func readJob(tx *badger.Txn, key []byte) (*core.Job, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var job *core.Job
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}
