package sessioncache

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCacheColdStart(t *testing.T) {
	c := New(afero.NewMemMapFs(), "/home/u/.buildhelper/sessions.yaml")

	v, ok := c.Get("scm")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Empty(t, c.Domains())
}

func TestCachePersistAndReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/u/.buildhelper/sessions.yaml"

	c := New(fs, path)
	c.Set("scm", map[string]any{"branch": "main", "head": "abc123"})
	c.Set("review", "token-1")
	require.NoError(t, c.Persist())

	reloaded := New(fs, path)
	v, ok := reloaded.Get("scm")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"branch": "main", "head": "abc123"}, v)
	assert.Equal(t, []string{"review", "scm"}, reloaded.Domains())

	// No temp files are left next to the cache
	entries, err := afero.ReadDir(fs, filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCachePersistOverwritesWholeStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cache/sessions.yaml"
	require.NoError(t, afero.WriteFile(fs, path, []byte("scm: old\nanalysis: keep\n"), 0o644))

	c := New(fs, path)
	c.Set("scm", "new")
	assert.True(t, c.Delete("analysis"))
	assert.False(t, c.Delete("analysis"))
	require.NoError(t, c.Persist())

	raw, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	var onDisk map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &onDisk))
	assert.Equal(t, map[string]any{"scm": "new"}, onDisk)
}

func TestCacheLoadsAtMostOnce(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cache/sessions.yaml"
	require.NoError(t, afero.WriteFile(fs, path, []byte("scm: first\n"), 0o644))

	c := New(fs, path)
	v, _ := c.Get("scm")
	assert.Equal(t, "first", v)

	// Changes on disk after the first read are not observed
	require.NoError(t, afero.WriteFile(fs, path, []byte("scm: second\n"), 0o644))
	v, _ = c.Get("scm")
	assert.Equal(t, "first", v)
}

func TestCacheIgnoresCorruptStore(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not yaml", content: "scm: [unclosed"},
		{name: "a list", content: "- a\n- b\n"},
		{name: "empty", content: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/c/sessions.yaml", []byte(tt.content), 0o644))

			c := New(fs, "/c/sessions.yaml")
			_, ok := c.Get("scm")
			assert.False(t, ok)

			c.Set("scm", "fresh")
			require.NoError(t, c.Persist())
		})
	}
}

func TestCacheClear(t *testing.T) {
	c := New(afero.NewMemMapFs(), "/c/sessions.yaml")
	c.Set("scm", 1)
	c.Set("review", 2)
	c.Clear()
	assert.Empty(t, c.Domains())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", ".buildhelper", "sessions.yaml"), DefaultPath())

	c := New(afero.NewMemMapFs(), "")
	assert.Equal(t, DefaultPath(), c.Path())
}

func TestCacheTreatsEmptyPayloadsAsAbsent(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cache/sessions.yaml"
	content := "scm: {}\nreview: \"\"\nanalysis: []\nother: false\nlive:\n  branch: main\n"
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))

	c := New(fs, path)
	for _, domain := range []string{"scm", "review", "analysis", "other"} {
		v, ok := c.Get(domain)
		assert.False(t, ok, domain)
		assert.Nil(t, v, domain)
	}

	v, ok := c.Get("live")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"branch": "main"}, v)
}
