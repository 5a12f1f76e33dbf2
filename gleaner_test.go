package gleaner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/ai/mock"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/ingestion"
	"github.com/poiesic/gleaner/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticNormalizer struct {
	text string
	err  error
}

func (n staticNormalizer) FetchAndNormalize(ctx context.Context, url string) (string, error) {
	return n.text, n.err
}

func openTest(t *testing.T, normalizer ingestion.Normalizer, completer ai.Completer) *Gleaner {
	t.Helper()
	g, err := Open("", WithInMemory(), WithNormalizer(normalizer), WithCompleter(completer))
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func TestOpen(t *testing.T) {
	t.Run("creates database directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "test_db")
		g, err := Open(dir)
		require.NoError(t, err)
		require.NoError(t, g.Close())

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("error with file path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		g, err := Open(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, g)
	})

	t.Run("error with invalid ai config", func(t *testing.T) {
		cfg := ai.DefaultConfig()
		cfg.RetryAttempts = 0
		g, err := Open("", WithInMemory(), WithAIConfig(cfg))
		assert.Error(t, err)
		assert.Nil(t, g)
	})
}

func TestGleaner_IngestAndQuery(t *testing.T) {
	g := openTest(t, staticNormalizer{text: "Some article text."}, mock.NewMockCompleter())
	ctx := context.Background()

	job, record, err := g.Ingest(ctx, "c1", "https://example.com/a", nil)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, core.StatusCompleted, job.Status)

	report, err := g.Query(ctx, "c1", job.SourceID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, report.Job.Status)
	require.NotNil(t, report.Record)
	assert.Equal(t, "unknown", report.Record.Author)

	audits, err := g.Chunks(ctx, "c1", job.SourceID)
	require.NoError(t, err)
	assert.Len(t, audits, 1)
}

func TestGleaner_SubmitAndWait(t *testing.T) {
	g := openTest(t, staticNormalizer{text: "Some article text."}, mock.NewMockCompleter())
	ctx := context.Background()

	job, err := g.Submit(ctx, "c1", "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, job.Status)

	g.Wait()

	report, err := g.Query(ctx, "c1", job.SourceID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, report.Job.Status)
	assert.NotNil(t, report.Record)
}

func TestGleaner_QueryFailedJobHasNoRecord(t *testing.T) {
	fetchErr := fmt.Errorf("%w: connection refused", core.ErrFetchFailed)
	g := openTest(t, staticNormalizer{err: fetchErr}, mock.NewMockCompleter())
	ctx := context.Background()

	job, _, err := g.Ingest(ctx, "c1", "https://example.com/a", nil)
	require.Error(t, err)

	report, err := g.Query(ctx, "c1", job.SourceID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, report.Job.Status)
	assert.Equal(t, core.FailureFetch, report.Job.Failure)
	assert.Nil(t, report.Record)
}

func TestGleaner_QueryUnknownSource(t *testing.T) {
	g := openTest(t, staticNormalizer{}, mock.NewMockCompleter())

	_, err := g.Query(context.Background(), "c1", "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = g.Chunks(context.Background(), "c1", "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestGleaner_ListPaginates(t *testing.T) {
	g := openTest(t, staticNormalizer{text: "Text."}, mock.NewMockCompleter())
	ctx := context.Background()

	for _, id := range []string{"s3", "s1", "s2"} {
		_, _, err := g.Ingest(ctx, "c1", "https://example.com/"+id, &ingestion.IngestOptions{SourceID: id})
		require.NoError(t, err)
	}
	_, _, err := g.Ingest(ctx, "other", "https://example.com/x", nil)
	require.NoError(t, err)

	page, cursor, err := g.List(ctx, "c1", 2, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "s1", page[0].SourceID)
	assert.Equal(t, "s2", page[1].SourceID)
	assert.Equal(t, "s2", cursor)

	page, cursor, err = g.List(ctx, "c1", 2, cursor)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "s3", page[0].SourceID)
	assert.Empty(t, cursor)
}

func TestGleaner_DeleteCascades(t *testing.T) {
	g := openTest(t, staticNormalizer{text: "Text."}, mock.NewMockCompleter())
	ctx := context.Background()

	job, _, err := g.Ingest(ctx, "c1", "https://example.com/a", nil)
	require.NoError(t, err)

	require.NoError(t, g.Delete(ctx, "c1", job.SourceID))

	_, err = g.Query(ctx, "c1", job.SourceID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	_, err = g.results.GetResult(ctx, "c1", job.SourceID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	audits, err := g.chunks.GetChunks(ctx, "c1", job.SourceID)
	require.NoError(t, err)
	assert.Empty(t, audits)

	assert.True(t, errors.Is(g.Delete(ctx, "c1", job.SourceID), storage.ErrNotFound))
}

func TestGleaner_DeleteRejectsRunningJob(t *testing.T) {
	g := openTest(t, staticNormalizer{}, mock.NewMockCompleter())
	ctx := context.Background()

	pending := &core.Job{
		SourceID:    "running",
		CommunityID: "c1",
		URL:         "https://example.com/a",
		Status:      core.StatusProcessing,
	}
	require.NoError(t, g.jobs.CreateJob(ctx, pending))

	assert.ErrorIs(t, g.Delete(ctx, "c1", "running"), ErrJobInProgress)
}
