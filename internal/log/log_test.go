package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestConfigure_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printcal.log")
	Configure(Options{Level: LevelInfo, Format: "json", Output: path})
	t.Cleanup(func() { Configure(Options{Level: LevelInfo, Format: "console", Output: "stderr"}) })

	Debug("hidden debug line")
	Info("pages rendered", "count", 3)
	Error("fetch failed", errors.New("boom"), "id", "work")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.NotContains(t, out, "hidden debug line")
	assert.Contains(t, out, `"msg":"pages rendered"`)
	assert.Contains(t, out, `"count":3`)
	assert.Contains(t, out, `"err":"boom"`)
	assert.Contains(t, out, `"id":"work"`)
}

func TestSetLevel_Debug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	Configure(Options{Level: LevelDebug, Format: "json", Output: path})
	t.Cleanup(func() { Configure(Options{Level: LevelInfo, Format: "console", Output: "stderr"}) })

	Debug("grid built", "rows", 5)
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "grid built")
}

func TestConfigure_ClosesPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "first.log")
	Configure(Options{Format: "json", Output: path})
	mu.RLock()
	first := logFile
	mu.RUnlock()
	require.NotNil(t, first)

	Configure(Options{Level: LevelInfo, Format: "console", Output: "stderr"})

	mu.RLock()
	assert.Nil(t, logFile)
	mu.RUnlock()
	_, err := first.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
