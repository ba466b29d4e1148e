package wtlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetGlobal saves and restores the package-global sink around a test, the
// same save/restore-then-defer shape the teacher's debug_test.go uses for
// its own global logger.
func resetGlobal(t *testing.T) {
	t.Helper()
	global.mu.Lock()
	prevFile := global.file
	prevBuffer := append([]byte(nil), global.buffer...)
	prevDiscard := global.discard
	global.file = nil
	global.buffer = nil
	global.discard = false
	global.mu.Unlock()

	t.Cleanup(func() {
		global.mu.Lock()
		if global.file != nil {
			_ = global.file.Close()
		}
		global.file = prevFile
		global.buffer = prevBuffer
		global.discard = prevDiscard
		global.mu.Unlock()
	})
}

func TestLevel_StringNames(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "?", Level(99).String())
}

func TestSetFile_FlushesBufferedOutputOnAttach(t *testing.T) {
	resetGlobal(t)

	Debugf("buffered before a file is attached")

	path := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, SetFile(path))
	t.Cleanup(func() { _ = Close() })

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "buffered before a file is attached")
}

func TestSetFile_EmptyPathDiscardsFutureOutput(t *testing.T) {
	resetGlobal(t)

	require.NoError(t, SetFile(""))
	Infof("should be discarded")

	global.mu.Lock()
	bufferLen := len(global.buffer)
	global.mu.Unlock()
	assert.Zero(t, bufferLen)
}

func TestSetFile_FailureDiscardsAndClearsBuffer(t *testing.T) {
	resetGlobal(t)

	unwritableDir := t.TempDir()
	require.NoError(t, os.Chmod(unwritableDir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(unwritableDir, 0o700) })

	Debugf("queued")
	err := SetFile(filepath.Join(unwritableDir, "debug.log"))
	assert.Error(t, err)

	global.mu.Lock()
	discard := global.discard
	bufferLen := len(global.buffer)
	global.mu.Unlock()
	assert.True(t, discard)
	assert.Zero(t, bufferLen)

	Warnf("after failure")
	global.mu.Lock()
	bufferLen = len(global.buffer)
	global.mu.Unlock()
	assert.Zero(t, bufferLen)
}

func TestClose_WithNoAttachedFileIsANoOp(t *testing.T) {
	resetGlobal(t)
	assert.NoError(t, Close())
}

func TestNewFileWriter_OpensAppendOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hook.log")
	w, err := NewFileWriter(path)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("hook output\n"))
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hook output\n", string(contents))
}
