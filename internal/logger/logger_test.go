package logger_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ostafen/zipsniff/internal/logger"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, logger.ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, logger.ParseLevel("WARN"))
	require.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, logger.ParseLevel("verbose"))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "zipsniff.log")

	log, closer, err := logger.New(path, slog.LevelInfo)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("detected", "type", "application/zip")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "msg=detected")
	require.Contains(t, string(data), "type=application/zip")
	require.NotContains(t, string(data), "hidden")
}
