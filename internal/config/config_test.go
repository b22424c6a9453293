package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "db.sqlite3", c.Sqlite.Dsn)
	assert.Equal(t, "urlmapper_", c.Sqlite.Prefix)
	assert.Equal(t, 3000, c.Store.TimeoutMS)
	assert.Equal(t, []string{"console"}, c.Log.Writer)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
sqlite:
  dsn: /tmp/rules.db
log:
  level: debug
  writer: [console, file]
store:
  timeoutMS: 500
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/rules.db", c.Sqlite.Dsn)
	assert.Equal(t, "urlmapper_", c.Sqlite.Prefix, "unset keys keep defaults")
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, []string{"console", "file"}, c.Log.Writer)
	assert.Equal(t, 500, c.Store.TimeoutMS)
	assert.Equal(t, 256, c.Store.QueueSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  writer: [syslog]\nstore:\n  queueSize: -1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syslog")
	assert.Contains(t, err.Error(), "queueSize")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
