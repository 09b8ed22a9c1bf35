package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTestModeRestoresPrevious(t *testing.T) {
	restore := SetTestMode(true)
	defer restore()
	assert.True(t, InTestMode())

	off := SetTestMode(false)
	assert.False(t, InTestMode())
	off()
	assert.True(t, InTestMode())
}

func TestNewLoggerDiscardsInTestMode(t *testing.T) {
	defer SetTestMode(true)()
	path := filepath.Join(t.TempDir(), "pecsa.log")

	NewLogger(&Config{LogFormat: "json", LogLevel: "debug", LogFile: path}).Error("ignored")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewLoggerWritesRotatingFile(t *testing.T) {
	defer SetTestMode(false)()
	path := filepath.Join(t.TempDir(), "logs", "pecsa.log")

	logger := NewLogger(&Config{LogFormat: "json", LogLevel: "info", LogFile: path})
	logger.Debug("hidden")
	logger.Info("arranque", slog.String("addr", ":8080"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"arranque"`)
	assert.Contains(t, string(data), `"addr":":8080"`)
	assert.NotContains(t, string(data), "hidden")
}
