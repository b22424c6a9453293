package service

import (
	"context"
	"path/filepath"
	"testing"

	"urlmapper/internal/config"
	"urlmapper/internal/logger"
	"urlmapper/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewConfig()
	cfg.Sqlite.Dsn = filepath.Join(t.TempDir(), "rules.db")
	return cfg
}

func TestRulesSurviveRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	s, err := New(ctx, cfg, logger.NewNop(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Set("http://foo.com/*/baz", "http://new.com", false, true))
	require.NoError(t, s.Set("foo.com/bar/baz", "/srv/a.html", true, true))
	require.NoError(t, s.Set("foo.com/bar/baz", "/srv/b.html", true, false))
	require.NoError(t, s.Set("gone.com", "x", true, true))
	s.Remove("gone.com")
	require.NoError(t, s.Close())

	var loads []model.Change
	s, err = New(ctx, cfg, nil, func(ch model.Change) { loads = append(loads, ch) })
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []model.Mapping{
		{URL: "foo.com/*/baz", NewURL: "http://new.com", IsLocal: false, IsActive: true},
		{URL: "foo.com/bar/baz", NewURL: "/srv/b.html", IsLocal: true, IsActive: false},
	}, s.Mappings())

	got, ok := s.Get("https://foo.com/bar/baz")
	require.True(t, ok)
	assert.Equal(t, "/srv/b.html", got.NewURL)
	assert.False(t, s.IsActiveMappedURL("foo.com/bar/baz"))
	assert.True(t, s.IsActiveMappedURL("foo.com/qux/baz"))

	require.Len(t, loads, 1)
	assert.Equal(t, model.OpLoad, loads[0].Op)
	assert.Len(t, loads[0].Mappings, 2)
}

func TestNewInvalidDsn(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sqlite.Dsn = filepath.Join(t.TempDir(), "missing", "dir", "rules.db")
	_, err := New(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
