package storage

import (
	"context"

	"github.com/poiesic/gleaner/core"
)

// JobRepository persists ingestion jobs keyed by (community, source).
// Implementations must be thread-safe and support concurrent access.
type JobRepository interface {
	// CreateJob stores a new job.
	// Returns ErrDuplicateKey if a job with the same key exists.
	CreateJob(ctx context.Context, job *core.Job) error

	// UpdateJob replaces an existing job.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.Job) error

	// GetJob retrieves a single job.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, communityID, sourceID string) (*core.Job, error)

	// ListJobs returns up to limit jobs of a community ordered by source ID,
	// starting after cursor. The returned cursor is empty when there are no
	// more jobs. A limit of 0 means no limit.
	ListJobs(ctx context.Context, communityID string, limit int, cursor string) ([]*core.Job, string, error)

	// DeleteJob removes a job.
	// Returns ErrNotFound if the job doesn't exist.
	DeleteJob(ctx context.Context, communityID, sourceID string) error
}

// ResultRepository persists the final record of a completed job.
type ResultRepository interface {
	// PutResult stores or replaces the record for a source.
	PutResult(ctx context.Context, communityID, sourceID string, record *core.ExtractedRecord) error

	// GetResult retrieves the record for a source.
	// Returns ErrNotFound if there is none.
	GetResult(ctx context.Context, communityID, sourceID string) (*core.ExtractedRecord, error)

	// DeleteResult removes the record for a source. Missing records are not an error.
	DeleteResult(ctx context.Context, communityID, sourceID string) error
}

// ChunkRepository persists per-chunk extraction outcomes for auditing.
type ChunkRepository interface {
	// PutChunks stores chunk audits, replacing any with the same index.
	PutChunks(ctx context.Context, communityID string, audits ...*core.ChunkAudit) error

	// GetChunks returns the audits of a source ordered by chunk index.
	GetChunks(ctx context.Context, communityID, sourceID string) ([]*core.ChunkAudit, error)

	// DeleteChunks removes every audit of a source. Missing audits are not an error.
	DeleteChunks(ctx context.Context, communityID, sourceID string) error
}
