package directive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCD_WritesToStdoutWhenEnvUnset(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	require.NoError(t, w.CD("/repo/.feat"))
	assert.Equal(t, "cd /repo/.feat\n", buf.String())
}

func TestExec_WritesToStdout(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	require.NoError(t, w.Exec("npm test"))
	assert.Equal(t, "exec npm test\n", buf.String())
}

func TestCD_WritesToDirectiveFileWhenEnvSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directives")
	t.Setenv(EnvVar, path)

	var buf bytes.Buffer
	w := New(&buf)
	require.NoError(t, w.CD("/repo/.feat"))
	require.NoError(t, w.Exec("npm test"))
	assert.Empty(t, buf.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cd /repo/.feat\nexec npm test\n", string(data))
}

func TestStripFromEnv_RemovesDirectiveVar(t *testing.T) {
	env := []string{"PATH=/bin", EnvVar + "=/tmp/d", "HOME=/root"}
	out := StripFromEnv(env)
	assert.Equal(t, []string{"PATH=/bin", "HOME=/root"}, out)
}

func TestStripFromEnv_NoOpWhenAbsent(t *testing.T) {
	env := []string{"PATH=/bin", "HOME=/root"}
	assert.Equal(t, env, StripFromEnv(env))
}
