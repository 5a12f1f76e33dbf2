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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/chunk"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/metrics"
	"github.com/poiesic/gleaner/storage"
)

// Normalizer fetches a source and returns its readable text.
// Errors should wrap core.ErrFetchFailed.
type Normalizer interface {
	FetchAndNormalize(ctx context.Context, url string) (string, error)
}

// Defaults for pipeline options.
const (
	DefaultPoolSize         = 4
	DefaultChunkConcurrency = 5
)

// Pipeline orchestrates ingestion jobs from submission to a stored record.
type Pipeline struct {
	jobs       storage.JobRepository
	results    storage.ResultRepository
	chunks     storage.ChunkRepository
	normalizer Normalizer
	completer  ai.Completer

	jobPool *ants.Pool
	running sync.WaitGroup

	chunkConcurrency   int
	maxChunkLength     int
	extraction         ai.Profile
	cleanup            ai.Profile
	extractInstruction string
	cleanupInstruction string
	now                func() time.Time
	logger             *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many jobs run concurrently.
// Default is DefaultPoolSize.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.jobPool != nil {
			p.jobPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.jobPool = pool
		return nil
	}
}

// WithChunkConcurrency sets how many chunks of one job are extracted concurrently.
// Default is DefaultChunkConcurrency.
func WithChunkConcurrency(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		p.chunkConcurrency = n
		return nil
	}
}

// WithMaxChunkLength sets the chunk length limit in runes.
// Default is chunk.DefaultMaxLength.
func WithMaxChunkLength(n int) Option {
	return func(p *Pipeline) error {
		p.maxChunkLength = n
		return nil
	}
}

// WithProfiles sets the LLM profiles used for extraction and cleanup.
// Defaults come from ai.DefaultConfig.
func WithProfiles(extraction, cleanup ai.Profile) Option {
	return func(p *Pipeline) error {
		p.extraction = extraction
		p.cleanup = cleanup
		return nil
	}
}

// WithInstructions replaces the system instructions. Empty values keep the default.
func WithInstructions(extraction, cleanup string) Option {
	return func(p *Pipeline) error {
		if extraction != "" {
			p.extractInstruction = extraction
		}
		if cleanup != "" {
			p.cleanupInstruction = cleanup
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithClock replaces the time source used for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		p.now = now
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
// The completer is used as given; wrap it in ai.RetryingCompleter for retries.
func NewPipeline(
	jobs storage.JobRepository,
	results storage.ResultRepository,
	chunks storage.ChunkRepository,
	normalizer Normalizer,
	completer ai.Completer,
	opts ...Option,
) (*Pipeline, error) {
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if results == nil {
		return nil, ErrResultRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if normalizer == nil {
		return nil, ErrNormalizerRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	jobPool, err := ants.NewPool(DefaultPoolSize)
	if err != nil {
		return nil, err
	}

	defaults := ai.DefaultConfig()
	p := &Pipeline{
		jobs:               jobs,
		results:            results,
		chunks:             chunks,
		normalizer:         normalizer,
		completer:          completer,
		jobPool:            jobPool,
		chunkConcurrency:   DefaultChunkConcurrency,
		maxChunkLength:     chunk.DefaultMaxLength,
		extraction:         defaults.ExtractionProfile(),
		cleanup:            defaults.CleanupProfile(),
		extractInstruction: DefaultExtractionInstruction,
		cleanupInstruction: DefaultCleanupInstruction,
		now:                func() time.Time { return time.Now().UTC() },
		logger:             slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	SourceID string       // Optional source ID (a new UUID if empty)
	Progress ProgressFunc // Optional chunk progress callback
}

// Submit validates the URL, stores a Pending job and schedules it.
// It returns a snapshot of the job as stored; poll the job repository for
// its progress. The job runs detached from ctx.
func (p *Pipeline) Submit(ctx context.Context, communityID, url string, opts *IngestOptions) (*core.Job, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}

	job, err := p.createJob(ctx, communityID, url, opts.SourceID)
	if err != nil {
		return nil, err
	}
	snapshot := *job

	runCtx := context.WithoutCancel(ctx)
	p.running.Add(1)
	submitErr := p.jobPool.Submit(func() {
		defer p.running.Done()
		_, _ = p.run(runCtx, job, opts.Progress)
	})
	if submitErr != nil {
		p.running.Done()
		p.fail(runCtx, job, submitErr)
		return nil, fmt.Errorf("schedule job: %w", submitErr)
	}

	return &snapshot, nil
}

// Ingest runs a job to completion on the calling goroutine.
// The returned job is in a terminal state. When the job failed, the error
// is its cause and the record is nil.
func (p *Pipeline) Ingest(ctx context.Context, communityID, url string, opts *IngestOptions) (*core.Job, *core.ExtractedRecord, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}

	job, err := p.createJob(ctx, communityID, url, opts.SourceID)
	if err != nil {
		return nil, nil, err
	}

	record, err := p.run(ctx, job, opts.Progress)
	return job, record, err
}

// Wait blocks until every submitted job has finished.
func (p *Pipeline) Wait() {
	p.running.Wait()
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.jobPool != nil {
		p.jobPool.Release()
	}
}

func (p *Pipeline) createJob(ctx context.Context, communityID, url, sourceID string) (*core.Job, error) {
	if sourceID == "" {
		sourceID = uuid.NewString()
	}
	now := p.now()
	job := &core.Job{
		SourceID:    sourceID,
		CommunityID: communityID,
		URL:         url,
		Status:      core.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := core.ValidateJob(job); err != nil {
		return nil, err
	}
	if err := p.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	p.logger.Info("job accepted", "community", communityID, "source", sourceID, "url", url)
	return job, nil
}

// run drives a job to a terminal status. Panics fail the job as Unexpected.
func (p *Pipeline) run(ctx context.Context, job *core.Job, progress ProgressFunc) (record *core.ExtractedRecord, err error) {
	start := time.Now()
	metrics.JobStarted()
	defer func() {
		if r := recover(); r != nil {
			record = nil
			err = fmt.Errorf("panic: %v", r)
			p.fail(ctx, job, err)
		}
		metrics.JobFinished(job.Status.String(), job.Failure, time.Since(start).Seconds())
	}()

	record, err = p.execute(ctx, job, progress)
	if err != nil {
		p.fail(ctx, job, err)
		return nil, err
	}
	return record, nil
}

func (p *Pipeline) execute(ctx context.Context, job *core.Job, progress ProgressFunc) (*core.ExtractedRecord, error) {
	logger := p.logger.With("community", job.CommunityID, "source", job.SourceID)

	if err := p.transition(ctx, job, core.StatusProcessing); err != nil {
		return nil, err
	}

	text, err := p.normalizer.FetchAndNormalize(ctx, job.URL)
	if err != nil {
		if !errors.Is(err, core.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", core.ErrFetchFailed, err)
		}
		return nil, err
	}

	chunks := chunk.Chunks(job.SourceID, text, p.maxChunkLength)
	job.ChunkCount = len(chunks)
	logger.Info("source normalized", "chars", len(text), "chunks", len(chunks))

	processor := newChunkProcessor(p.completer, p.extraction, p.extractInstruction, p.chunkConcurrency, logger)
	results, procErr := processor.process(ctx, chunks, progress)
	p.storeAudits(ctx, logger, job, results)
	if procErr != nil {
		return nil, procErr
	}

	records := succeededRecords(results)
	job.ChunksProcessed = len(records)
	merged := Merge(records)

	final := merged
	cleaned, err := newCleaner(p.completer, p.cleanup, p.cleanupInstruction, logger).cleanup(ctx, merged)
	if err != nil {
		metrics.CleanupFallback()
		logger.Warn("cleanup failed, storing merged record", "err", err)
	} else {
		final = cleaned
		job.Cleaned = true
	}

	if err := p.results.PutResult(ctx, job.CommunityID, job.SourceID, final); err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}

	if err := p.transition(ctx, job, core.StatusCompleted); err != nil {
		return nil, err
	}

	logger.Info("job completed",
		"chunks", job.ChunkCount,
		"processed", job.ChunksProcessed,
		"cleaned", job.Cleaned)
	return final, nil
}

// storeAudits persists per-chunk outcomes. They are informational, so a
// storage failure is logged and does not fail the job.
func (p *Pipeline) storeAudits(ctx context.Context, logger *slog.Logger, job *core.Job, results []chunkResult) {
	if len(results) == 0 {
		return
	}
	audits := make([]*core.ChunkAudit, len(results))
	for i, r := range results {
		audits[i] = r.audit()
	}
	if err := p.chunks.PutChunks(ctx, job.CommunityID, audits...); err != nil {
		logger.Warn("failed to store chunk audits", "err", err)
	}
}

func (p *Pipeline) transition(ctx context.Context, job *core.Job, to core.SourceStatus) error {
	if err := job.Transition(to, p.now()); err != nil {
		return err
	}
	if err := p.jobs.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// fail records err on the job. Only the error kind is persisted.
func (p *Pipeline) fail(ctx context.Context, job *core.Job, err error) {
	logger := p.logger.With("community", job.CommunityID, "source", job.SourceID)

	if ferr := job.Fail(err, p.now()); ferr != nil {
		logger.Error("cannot fail job", "status", job.Status, "cause", err, "err", ferr)
		return
	}
	if uerr := p.jobs.UpdateJob(ctx, job); uerr != nil {
		logger.Error("failed to persist job failure", "err", uerr)
	}
	logger.Error("job failed", "kind", job.Failure, "err", err)
}
