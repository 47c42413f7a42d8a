package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvGetters(t *testing.T) {
	t.Setenv("ALSITO_INT", "12")
	t.Setenv("ALSITO_BOOL", "true")
	t.Setenv("ALSITO_DUR", "250ms")
	t.Setenv("ALSITO_MS", "5000")
	t.Setenv("ALSITO_BAD", "abc")

	assert.Equal(t, int64(12), GetIntEnv("ALSITO_INT"))
	assert.Equal(t, int64(7), GetIntEnvOr("ALSITO_MISSING", 7))
	assert.Equal(t, int64(7), GetIntEnvOr("ALSITO_BAD", 7))
	assert.True(t, GetBoolEnv("ALSITO_BOOL"))
	assert.Equal(t, 250*time.Millisecond, GetDurationEnvOr("ALSITO_DUR", time.Second))
	assert.Equal(t, 5*time.Second, GetDurationEnvOr("ALSITO_MS", time.Second))
	assert.Equal(t, time.Second, GetDurationEnvOr("ALSITO_BAD", time.Second))
	assert.Equal(t, "fallback", GetEnvOr("ALSITO_MISSING", "fallback"))

	t.Setenv("ALSITO_LIST", " bfp, ,pnp ")
	assert.Equal(t, []string{"bfp", "pnp"}, GetListEnv("ALSITO_LIST"))
	assert.Nil(t, GetListEnv("ALSITO_MISSING"))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Error(t, LoadEnv("test"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"), []byte("ALSITO_FROM_FILE=yes\n"), 0o600))
	t.Setenv("ALSITO_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("ALSITO_FROM_FILE"))
	require.NoError(t, LoadEnv("test"))
	assert.Equal(t, "yes", GetEnv("ALSITO_FROM_FILE"))
}

func TestOpenDatabaseMemory(t *testing.T) {
	db, err := OpenDatabase("sqlite", "")
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO t VALUES (1)").Error)

	var n int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM t").Scan(&n).Error)
	assert.Equal(t, int64(1), n)
}
