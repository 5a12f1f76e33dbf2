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


// Package gleaner ingests web sources into structured study records.
//
// A Gleaner fetches a URL, splits the readable text into chunks, extracts a
// record from every chunk with an LLM, merges the records and asks the LLM
// for a final cleanup. Jobs and results are kept in a badger database keyed
// by community and source.
package gleaner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/ai/openai"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/fetch"
	"github.com/poiesic/gleaner/ingestion"
	"github.com/poiesic/gleaner/metrics"
	"github.com/poiesic/gleaner/storage"
	"github.com/poiesic/gleaner/storage/badger"
)

// ErrJobInProgress indicates a source cannot be deleted while its job runs.
var ErrJobInProgress = errors.New("job still in progress")

// Gleaner owns the storage and pipeline of one ingestion database.
type Gleaner struct {
	backend  *badger.Backend
	jobs     storage.JobRepository
	results  storage.ResultRepository
	chunks   storage.ChunkRepository
	pipeline *ingestion.Pipeline
	logger   *slog.Logger
}

// Option configures a Gleaner.
type Option func(*options)

type options struct {
	aiConfig     *ai.Config
	completer    ai.Completer
	normalizer   ingestion.Normalizer
	fetchOpts    []fetch.Option
	pipelineOpts []ingestion.Option
	inMemory     bool
	logger       *slog.Logger
}

// WithAIConfig sets the LLM configuration. Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithCompleter replaces the OpenAI-compatible transport.
// Retries from the AI configuration still apply.
func WithCompleter(c ai.Completer) Option {
	return func(o *options) {
		o.completer = c
	}
}

// WithNormalizer replaces the HTTP fetcher.
func WithNormalizer(n ingestion.Normalizer) Option {
	return func(o *options) {
		o.normalizer = n
	}
}

// WithFetchOptions configures the default HTTP fetcher.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(o *options) {
		o.fetchOpts = append(o.fetchOpts, opts...)
	}
}

// WithPipelineOptions passes options through to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) Option {
	return func(o *options) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithInMemory keeps the database in memory. The path is ignored.
func WithInMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open opens or creates the database at path and wires the pipeline.
func Open(path string, opts ...Option) (*Gleaner, error) {
	o := &options{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.aiConfig.Validate(); err != nil {
		return nil, err
	}

	completer := o.completer
	if completer == nil {
		var err error
		completer, err = openai.NewCompleter(o.aiConfig)
		if err != nil {
			return nil, err
		}
	}
	completer = ai.NewRetryingCompleter(completer, o.aiConfig.RetryPolicy(),
		ai.WithRetryLogger(o.logger),
		ai.WithObserver(metrics.LLMObserver{}))

	normalizer := o.normalizer
	if normalizer == nil {
		fetchOpts := append([]fetch.Option{fetch.WithLogger(o.logger)}, o.fetchOpts...)
		normalizer = fetch.NewHTTPNormalizer(fetchOpts...)
	}

	backend, err := badger.OpenBackend(path, o.inMemory)
	if err != nil {
		return nil, err
	}
	repos := badger.NewRepositories(backend)

	pipelineOpts := append([]ingestion.Option{
		ingestion.WithProfiles(o.aiConfig.ExtractionProfile(), o.aiConfig.CleanupProfile()),
		ingestion.WithLogger(o.logger),
	}, o.pipelineOpts...)
	pipeline, err := ingestion.NewPipeline(repos.Jobs, repos.Results, repos.Chunks, normalizer, completer, pipelineOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Gleaner{
		backend:  backend,
		jobs:     repos.Jobs,
		results:  repos.Results,
		chunks:   repos.Chunks,
		pipeline: pipeline,
		logger:   o.logger,
	}, nil
}

// Close waits for running jobs, then releases the pipeline and the database.
func (g *Gleaner) Close() error {
	g.pipeline.Wait()
	g.pipeline.Release()

	if err := g.backend.Close(); err != nil {
		g.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Submit accepts a URL for background ingestion and returns its Pending job.
func (g *Gleaner) Submit(ctx context.Context, communityID, url string) (*core.Job, error) {
	return g.pipeline.Submit(ctx, communityID, url, nil)
}

// Ingest runs a job to completion before returning.
func (g *Gleaner) Ingest(ctx context.Context, communityID, url string, opts *ingestion.IngestOptions) (*core.Job, *core.ExtractedRecord, error) {
	return g.pipeline.Ingest(ctx, communityID, url, opts)
}

// Wait blocks until every submitted job has finished.
func (g *Gleaner) Wait() {
	g.pipeline.Wait()
}

// Report is the state of one source. Record is set only once the job has
// completed.
type Report struct {
	Job    *core.Job
	Record *core.ExtractedRecord
}

// Query returns the job of a source and, when completed, its record.
func (g *Gleaner) Query(ctx context.Context, communityID, sourceID string) (*Report, error) {
	job, err := g.jobs.GetJob(ctx, communityID, sourceID)
	if err != nil {
		return nil, err
	}

	report := &Report{Job: job}
	if job.Status == core.StatusCompleted {
		record, err := g.results.GetResult(ctx, communityID, sourceID)
		if err != nil {
			return nil, err
		}
		report.Record = record
	}
	return report, nil
}

// List returns up to limit jobs of a community ordered by source id, starting
// after cursor. The returned cursor is empty on the last page.
func (g *Gleaner) List(ctx context.Context, communityID string, limit int, cursor string) ([]*core.Job, string, error) {
	return g.jobs.ListJobs(ctx, communityID, limit, cursor)
}

// Chunks returns the per-chunk extraction outcomes of a source.
func (g *Gleaner) Chunks(ctx context.Context, communityID, sourceID string) ([]*core.ChunkAudit, error) {
	if _, err := g.jobs.GetJob(ctx, communityID, sourceID); err != nil {
		return nil, err
	}
	return g.chunks.GetChunks(ctx, communityID, sourceID)
}

// Delete removes a finished source with its record and chunk audits.
func (g *Gleaner) Delete(ctx context.Context, communityID, sourceID string) error {
	job, err := g.jobs.GetJob(ctx, communityID, sourceID)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return ErrJobInProgress
	}

	if err := g.chunks.DeleteChunks(ctx, communityID, sourceID); err != nil {
		return err
	}
	if err := g.results.DeleteResult(ctx, communityID, sourceID); err != nil {
		return err
	}
	if err := g.jobs.DeleteJob(ctx, communityID, sourceID); err != nil {
		return err
	}

	g.logger.Info("source deleted", "community", communityID, "source", sourceID)
	return nil
}
