package common

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlantern/oauthdance/internal"
)

func TestResolveLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, resolveLogLevel(""))
	assert.Equal(t, slog.LevelDebug, resolveLogLevel("debug"))
	assert.Equal(t, internal.LevelTrace, resolveLogLevel("TRACE"))
	assert.Equal(t, slog.LevelInfo, resolveLogLevel("chatty"))
}

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		require.NoError(t, Close(context.Background()))
	})

	path := filepath.Join(t.TempDir(), LogFileName)
	var stdout bytes.Buffer
	initLogger(path, "debug", &stdout)
	slog.Debug("hello", "dance_id", "abc")

	assert.Contains(t, stdout.String(), "hello")
	assert.Contains(t, stdout.String(), "dance_id=abc")
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(contents))
}

func TestSetupDirectories(t *testing.T) {
	base := t.TempDir()
	dataDir, logDir, err := SetupDirectories(filepath.Join(base, "state"), filepath.Join(base, "logs"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "state", "data"), dataDir)
	assert.Equal(t, filepath.Join(base, "logs"), logDir)
	assert.DirExists(t, dataDir)
	assert.DirExists(t, logDir)
	assert.Equal(t, dataDir, DataPath())
	assert.Equal(t, logDir, LogPath())
}
