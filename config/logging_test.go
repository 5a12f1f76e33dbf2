package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("job accepted", "source", "abc")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "job accepted")
	assert.Contains(t, stderr.String(), "source=abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &entry))
	assert.Equal(t, "job accepted", entry["msg"])
	assert.Equal(t, "abc", entry["source"])
}

func TestSetupLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gleaner.log")
	logger, closeFn := SetupLogger(path, slog.LevelDebug)
	logger.Debug("written to file")
	require.NoError(t, closeFn())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `"msg":"written to file"`))
}

func TestSetupLogger_FallsBackToStderr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "gleaner.log")
	logger, closeFn := SetupLogger(path, slog.LevelInfo)
	require.NotNil(t, logger)
	assert.NoError(t, closeFn())

	logger, closeFn = SetupLogger("", slog.LevelInfo)
	require.NotNil(t, logger)
	assert.NoError(t, closeFn())
}
