package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_StdoutOnly(t *testing.T) {
	var out bytes.Buffer
	logger, closeLogs, err := newLogger(&out, slog.LevelInfo, "")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("sync start", "source", "https://example.org/pub/")
	require.NoError(t, closeLogs())

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "sync start")
	// not a terminal, so no color escapes
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestNewLogger_TeesToFile(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "s3mirror.log")

	logger, closeLogs, err := newLogger(&out, slog.LevelDebug, path)
	require.NoError(t, err)

	logger.Debug("would upload", "file", "a.txt")
	require.NoError(t, closeLogs())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "line=1 ")
	assert.Contains(t, string(data), "msg=\"would upload\" file=a.txt")
	assert.Contains(t, out.String(), "would upload")
}
