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

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/extract"
	"github.com/poiesic/gleaner/metrics"
)

// ProgressFunc is called after each chunk finishes, successfully or not.
// Calls are serialized.
type ProgressFunc func(done, total int)

// chunkResult is the outcome of extracting one chunk.
// Exactly one of record and err is set.
type chunkResult struct {
	chunk  core.Chunk
	record *core.ExtractedRecord
	err    error
}

// audit converts the result into its persisted form.
func (r chunkResult) audit() *core.ChunkAudit {
	return &core.ChunkAudit{
		SourceID: r.chunk.SourceID,
		Index:    r.chunk.Index,
		Text:     r.chunk.Text,
		Record:   r.record,
		Failure:  core.FailureKind(r.err),
	}
}

// chunkProcessor extracts records from chunks on a bounded worker pool.
type chunkProcessor struct {
	completer   ai.Completer
	profile     ai.Profile
	instruction string
	concurrency int
	logger      *slog.Logger
}

func newChunkProcessor(completer ai.Completer, profile ai.Profile, instruction string, concurrency int, logger *slog.Logger) *chunkProcessor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &chunkProcessor{
		completer:   completer,
		profile:     profile,
		instruction: instruction,
		concurrency: concurrency,
		logger:      logger.With("stage", "chunks"),
	}
}

// process extracts every chunk and returns all results in completion order.
// It fails with core.ErrNoChunksProcessed only when no chunk succeeded.
func (cp *chunkProcessor) process(ctx context.Context, chunks []core.Chunk, progress ProgressFunc) ([]chunkResult, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: source produced no chunks", core.ErrNoChunksProcessed)
	}

	pool, err := ants.NewPool(cp.concurrency)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		results   = make([]chunkResult, 0, len(chunks))
		succeeded int
	)

	collect := func(r chunkResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
		if r.err == nil {
			succeeded++
			metrics.ChunkOutcome("ok")
		} else {
			metrics.ChunkOutcome(core.FailureKind(r.err))
			cp.logger.Warn("chunk extraction failed",
				"source", r.chunk.SourceID,
				"chunk", r.chunk.Index,
				"kind", core.FailureKind(r.err),
				"err", r.err)
		}
		if progress != nil {
			progress(len(results), len(chunks))
		}
	}

	for _, c := range chunks {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					collect(chunkResult{chunk: c, err: fmt.Errorf("panic extracting chunk: %v", r)})
				}
			}()
			record, err := cp.extract(ctx, c)
			collect(chunkResult{chunk: c, record: record, err: err})
		})
		if submitErr != nil {
			wg.Done()
			collect(chunkResult{chunk: c, err: submitErr})
		}
	}
	wg.Wait()

	if succeeded == 0 {
		return results, fmt.Errorf("%w: all %d chunks failed", core.ErrNoChunksProcessed, len(chunks))
	}

	cp.logger.Debug("chunks processed", "succeeded", succeeded, "total", len(chunks))
	return results, nil
}

// extract runs one chunk through the LLM and the repair parser.
func (cp *chunkProcessor) extract(ctx context.Context, c core.Chunk) (*core.ExtractedRecord, error) {
	prompt := ai.Prompt{
		System: cp.instruction,
		User:   extractPrefix + c.Text,
	}
	reply, err := cp.completer.Complete(ctx, prompt, cp.profile)
	if err != nil {
		if !errors.Is(err, core.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", core.ErrExtractionFailed, err)
		}
		return nil, err
	}

	record, outcome, err := extract.ParseOutcome(reply)
	metrics.ReplyParsed(outcome.String())
	return record, err
}

// succeededRecords returns the records of successful results, in result order.
func succeededRecords(results []chunkResult) []*core.ExtractedRecord {
	records := make([]*core.ExtractedRecord, 0, len(results))
	for _, r := range results {
		if r.err == nil {
			records = append(records, r.record)
		}
	}
	return records
}
