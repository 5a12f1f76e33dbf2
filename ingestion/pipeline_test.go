package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/ai/mock"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
	"github.com/poiesic/gleaner/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCommunity = "physics-101"
	testURL       = "https://example.com/article"
	// Splits into "First part." and "Second part." at a 12 rune limit.
	twoChunkText = "First part. Second part."
)

// testNormalizer implements Normalizer for testing
type testNormalizer struct {
	text  string
	err   error
	panic bool
	calls atomic.Int32
}

func (n *testNormalizer) FetchAndNormalize(ctx context.Context, url string) (string, error) {
	n.calls.Add(1)
	if n.panic {
		panic("normalizer exploded")
	}
	return n.text, n.err
}

// setupTestPipeline creates a pipeline over in-memory repositories.
func setupTestPipeline(t *testing.T, normalizer Normalizer, completer ai.Completer, opts ...Option) (*Pipeline, *badger.Repositories) {
	t.Helper()

	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	opts = append([]Option{WithMaxChunkLength(12), WithChunkConcurrency(1)}, opts...)
	p, err := NewPipeline(repos.Jobs, repos.Results, repos.Chunks, normalizer, completer, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)

	return p, repos
}

// scriptedCompleter answers extraction by chunk text and cleanup with a fixed reply.
func scriptedCompleter(extraction map[string]string, cleanupReply string, cleanupErr error) *mock.MockCompleter {
	return mock.NewMockCompleter().WithCompleteFunc(
		func(ctx context.Context, prompt ai.Prompt, profile ai.Profile) (string, error) {
			if profile.Name == ai.ProfileCleanup {
				return cleanupReply, cleanupErr
			}
			reply, ok := extraction[chunkText(prompt)]
			if !ok {
				return "", fmt.Errorf("%w: no scripted reply", core.ErrExtractionFailed)
			}
			return reply, nil
		})
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	normalizer := &testNormalizer{}
	completer := mock.NewMockCompleter()

	tests := []struct {
		name string
		make func() (*Pipeline, error)
		want error
	}{
		{"jobs", func() (*Pipeline, error) {
			return NewPipeline(nil, repos.Results, repos.Chunks, normalizer, completer)
		}, ErrJobRepositoryRequired},
		{"results", func() (*Pipeline, error) {
			return NewPipeline(repos.Jobs, nil, repos.Chunks, normalizer, completer)
		}, ErrResultRepositoryRequired},
		{"chunks", func() (*Pipeline, error) {
			return NewPipeline(repos.Jobs, repos.Results, nil, normalizer, completer)
		}, ErrChunkRepositoryRequired},
		{"normalizer", func() (*Pipeline, error) {
			return NewPipeline(repos.Jobs, repos.Results, repos.Chunks, nil, completer)
		}, ErrNormalizerRequired},
		{"completer", func() (*Pipeline, error) {
			return NewPipeline(repos.Jobs, repos.Results, repos.Chunks, normalizer, nil)
		}, ErrCompleterRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.make()
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPipeline_IngestCompletesWithCleanedRecord(t *testing.T) {
	normalizer := &testNormalizer{text: twoChunkText}
	completer := scriptedCompleter(map[string]string{
		"First part.":  `{"author": "Jane", "keywords": [{"keyword": "A", "definition": "a", "relation_to_topic": "r"}]}`,
		"Second part.": `{"author": "John", "keywords": [{"keyword": "B", "definition": "b", "relation_to_topic": "r"}]}`,
	}, `{"author": "Jane", "main_topic": "Letters", "keywords": [{"keyword": "A", "definition": "a", "relation_to_topic": "r"}]}`, nil)

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p, repos := setupTestPipeline(t, normalizer, completer, WithClock(func() time.Time { return fixed }))

	job, record, err := p.Ingest(context.Background(), testCommunity, testURL, nil)
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, job.Status)
	assert.Empty(t, job.Failure)
	assert.Equal(t, 2, job.ChunkCount)
	assert.Equal(t, 2, job.ChunksProcessed)
	assert.True(t, job.Cleaned)
	assert.Equal(t, fixed, job.IngestedAt)
	assert.NotEmpty(t, job.SourceID)
	assert.Equal(t, "Letters", record.MainTopic)

	stored, err := repos.Jobs.GetJob(context.Background(), testCommunity, job.SourceID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
	assert.True(t, stored.Cleaned)

	result, err := repos.Results.GetResult(context.Background(), testCommunity, job.SourceID)
	require.NoError(t, err)
	assert.Equal(t, "Letters", result.MainTopic)

	audits, err := repos.Chunks.GetChunks(context.Background(), testCommunity, job.SourceID)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, "First part.", audits[0].Text)
	assert.Equal(t, "Second part.", audits[1].Text)
	assert.Equal(t, "Jane", audits[0].Record.Author)

	assert.Len(t, completer.CallsFor(ai.ProfileExtraction), 2)
	assert.Len(t, completer.CallsFor(ai.ProfileCleanup), 1)
}

func TestPipeline_CleanupFailureStoresMergedRecord(t *testing.T) {
	normalizer := &testNormalizer{text: twoChunkText}
	completer := scriptedCompleter(map[string]string{
		"First part.": `{"author": "unknown", "keywords": [{"keyword": "A", "definition": "a", "relation_to_topic": "r"}]}`,
		"Second part.": `{"author": "Jane", "keywords": [` +
			`{"keyword": "A", "definition": "a", "relation_to_topic": "r"},` +
			`{"keyword": "B", "definition": "b", "relation_to_topic": "r"}]}`,
	}, "", fmt.Errorf("%w: after 3 attempts", core.ErrExtractionFailed))

	p, repos := setupTestPipeline(t, normalizer, completer)

	job, record, err := p.Ingest(context.Background(), testCommunity, testURL, nil)
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, job.Status)
	assert.Equal(t, 2, job.ChunksProcessed)
	assert.False(t, job.Cleaned)

	// First non-empty value wins, so the sentinel from chunk one is kept.
	assert.Equal(t, "unknown", record.Author)
	require.Len(t, record.Keywords, 2)
	assert.Equal(t, "A", record.Keywords[0].Keyword)
	assert.Equal(t, "B", record.Keywords[1].Keyword)

	stored, err := repos.Results.GetResult(context.Background(), testCommunity, job.SourceID)
	require.NoError(t, err)
	assert.Equal(t, record, stored)
}

func TestPipeline_EmptyCleanupKeepsMergedRecord(t *testing.T) {
	normalizer := &testNormalizer{text: twoChunkText}
	completer := scriptedCompleter(map[string]string{
		"First part.":  `{"author": "Jane"}`,
		"Second part.": `{"site": "example.org"}`,
	}, "{}", nil)

	p, _ := setupTestPipeline(t, normalizer, completer)

	job, record, err := p.Ingest(context.Background(), testCommunity, testURL, nil)
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, job.Status)
	assert.False(t, job.Cleaned)
	assert.Equal(t, "Jane", record.Author)
	assert.Equal(t, "example.org", record.Site)
}

func TestPipeline_PartialChunkFailure(t *testing.T) {
	normalizer := &testNormalizer{text: twoChunkText}
	completer := scriptedCompleter(map[string]string{
		"First part.":  `{"author": "Jane"}`,
		"Second part.": "Sorry, I can't do that.",
	}, mock.DefaultReply, nil)

	p, repos := setupTestPipeline(t, normalizer, completer)

	job, _, err := p.Ingest(context.Background(), testCommunity, testURL, nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, job.Status)
	assert.Equal(t, 2, job.ChunkCount)
	assert.Equal(t, 1, job.ChunksProcessed)

	audits, err := repos.Chunks.GetChunks(context.Background(), testCommunity, job.SourceID)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Empty(t, audits[0].Failure)
	assert.Equal(t, core.FailureUnparsable, audits[1].Failure)
	assert.Nil(t, audits[1].Record)
}

func TestPipeline_AllChunksFail(t *testing.T) {
	normalizer := &testNormalizer{text: twoChunkText}
	completer := scriptedCompleter(map[string]string{}, mock.DefaultReply, nil)

	p, repos := setupTestPipeline(t, normalizer, completer)

	job, record, err := p.Ingest(context.Background(), testCommunity, testURL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoChunksProcessed)
	assert.Nil(t, record)
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Equal(t, core.FailureNoChunks, job.Failure)
	assert.Empty(t, completer.CallsFor(ai.ProfileCleanup))

	stored, err := repos.Jobs.GetJob(context.Background(), testCommunity, job.SourceID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, stored.Status)
	assert.Equal(t, core.FailureNoChunks, stored.Failure)

	_, err = repos.Results.GetResult(context.Background(), testCommunity, job.SourceID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPipeline_FetchFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"wrapped", fmt.Errorf("%w: connection refused", core.ErrFetchFailed)},
		{"bare", errors.New("dial tcp: connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizer := &testNormalizer{err: tt.err}
			completer := mock.NewMockCompleter()
			p, repos := setupTestPipeline(t, normalizer, completer)

			job, record, err := p.Ingest(context.Background(), testCommunity, testURL, nil)
			assert.ErrorIs(t, err, core.ErrFetchFailed)
			assert.Nil(t, record)
			assert.Equal(t, core.StatusFailed, job.Status)
			assert.Equal(t, core.FailureFetch, job.Failure)
			assert.Zero(t, completer.CallCount())

			stored, err := repos.Jobs.GetJob(context.Background(), testCommunity, job.SourceID)
			require.NoError(t, err)
			assert.Contains(t, stored.FailureDetail, "connection refused")

			_, err = repos.Results.GetResult(context.Background(), testCommunity, job.SourceID)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestPipeline_EmptyDocumentFails(t *testing.T) {
	normalizer := &testNormalizer{text: "   "}
	p, _ := setupTestPipeline(t, normalizer, mock.NewMockCompleter())

	job, _, err := p.Ingest(context.Background(), testCommunity, testURL, nil)
	assert.ErrorIs(t, err, core.ErrNoChunksProcessed)
	assert.Equal(t, core.FailureNoChunks, job.Failure)
}

func TestPipeline_PanicFailsJobAsUnexpected(t *testing.T) {
	normalizer := &testNormalizer{panic: true}
	p, repos := setupTestPipeline(t, normalizer, mock.NewMockCompleter())

	job, record, err := p.Ingest(context.Background(), testCommunity, testURL, nil)
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Equal(t, core.FailureUnexpected, job.Failure)

	stored, err := repos.Jobs.GetJob(context.Background(), testCommunity, job.SourceID)
	require.NoError(t, err)
	assert.Equal(t, core.FailureUnexpected, stored.Failure)
}

func TestPipeline_IngestRejectsInvalidURL(t *testing.T) {
	normalizer := &testNormalizer{text: twoChunkText}
	p, repos := setupTestPipeline(t, normalizer, mock.NewMockCompleter())

	for _, url := range []string{"", "example.com/page", "ftp://example.com/file", "http://"} {
		_, _, err := p.Ingest(context.Background(), testCommunity, url, &IngestOptions{SourceID: "s"})
		assert.ErrorIs(t, err, core.ErrInvalidURL, url)
	}

	_, err := repos.Jobs.GetJob(context.Background(), testCommunity, "s")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Zero(t, normalizer.calls.Load())
}

func TestPipeline_ExplicitSourceID(t *testing.T) {
	normalizer := &testNormalizer{text: "Short text."}
	p, _ := setupTestPipeline(t, normalizer, mock.NewMockCompleter())

	job, _, err := p.Ingest(context.Background(), testCommunity, testURL, &IngestOptions{SourceID: "fixed-id"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", job.SourceID)

	_, _, err = p.Ingest(context.Background(), testCommunity, testURL, &IngestOptions{SourceID: "fixed-id"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPipeline_SubmitRunsInBackground(t *testing.T) {
	normalizer := &testNormalizer{text: twoChunkText}
	release := make(chan struct{})
	completer := mock.NewMockCompleter().WithCompleteFunc(
		func(ctx context.Context, prompt ai.Prompt, profile ai.Profile) (string, error) {
			<-release
			return mock.DefaultReply, nil
		})

	p, repos := setupTestPipeline(t, normalizer, completer, WithPoolSize(2))

	ctx, cancel := context.WithCancel(context.Background())
	job, err := p.Submit(ctx, testCommunity, testURL, nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, job.Status)

	// Cancelling the submitting request does not stop the job.
	cancel()
	close(release)
	p.Wait()

	stored, err := repos.Jobs.GetJob(context.Background(), testCommunity, job.SourceID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
	assert.True(t, stored.Cleaned)

	_, err = repos.Results.GetResult(context.Background(), testCommunity, job.SourceID)
	assert.NoError(t, err)
}

func TestPipeline_SubmitRejectsInvalidURL(t *testing.T) {
	p, _ := setupTestPipeline(t, &testNormalizer{}, mock.NewMockCompleter())

	job, err := p.Submit(context.Background(), testCommunity, "not a url", nil)
	assert.Nil(t, job)
	assert.ErrorIs(t, err, core.ErrInvalidJob)
}

func TestPipeline_ConcurrentSubmits(t *testing.T) {
	normalizer := &testNormalizer{text: twoChunkText}
	p, repos := setupTestPipeline(t, normalizer, mock.NewMockCompleter(), WithPoolSize(3), WithLogger(slog.Default()))

	ids := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		job, err := p.Submit(context.Background(), testCommunity, testURL, nil)
		require.NoError(t, err)
		ids = append(ids, job.SourceID)
	}
	p.Wait()

	for _, id := range ids {
		job, err := repos.Jobs.GetJob(context.Background(), testCommunity, id)
		require.NoError(t, err)
		assert.Equal(t, core.StatusCompleted, job.Status, id)
	}
}

func TestPipeline_ProgressCallback(t *testing.T) {
	normalizer := &testNormalizer{text: twoChunkText}
	p, _ := setupTestPipeline(t, normalizer, mock.NewMockCompleter())

	var last [2]int
	_, _, err := p.Ingest(context.Background(), testCommunity, testURL, &IngestOptions{
		Progress: func(done, total int) { last = [2]int{done, total} },
	})
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 2}, last)
}
