package localization_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonpair/backend/internal/localization"
)

func TestGetStringFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"en.json":   {Data: []byte(`{"hello": "Hello", "bye": "Bye %s"}`)},
		"id.json":   {Data: []byte(`{"hello": "Halo"}`)},
		"notes.txt": {Data: []byte("ignored")},
	}
	l, err := localization.NewLocalizerFS(fsys)
	require.NoError(t, err)

	assert.Equal(t, "Halo", l.GetString("id", "hello"))
	assert.Equal(t, "Bye %s", l.GetString("id", "bye"), "missing key falls back to English")
	assert.Equal(t, "Hello", l.GetString("fr", "hello"), "unknown language falls back to English")
	assert.Equal(t, "missing", l.GetString("en", "missing"), "unknown key returns the key")
	assert.Equal(t, "Bye Ann", l.Format("id", "bye", "Ann"))
	assert.Equal(t, []string{"en", "id"}, l.Languages())
	assert.True(t, l.Supports("id"))
	assert.False(t, l.Supports("fr"))
}

func TestNewLocalizerErrors(t *testing.T) {
	_, err := localization.NewLocalizerFS(fstest.MapFS{"en.json": {Data: []byte(`{`)}})
	assert.Error(t, err)

	_, err = localization.NewLocalizerFS(fstest.MapFS{})
	assert.Error(t, err)

	_, err = localization.NewLocalizer(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestNewLocalizerFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"), []byte(`{"k": "v"}`), 0o644))

	l, err := localization.NewLocalizer(dir)
	require.NoError(t, err)
	assert.Equal(t, "v", l.GetString("en", "k"))
}

// Every bundled language must translate the same keys with the same
// number of format verbs as English.
func TestBundledCatalogsAgree(t *testing.T) {
	l, err := localization.New()
	require.NoError(t, err)
	require.Contains(t, l.Languages(), "en")

	catalogs := map[string]map[string]string{}
	for _, lang := range l.Languages() {
		data, err := os.ReadFile(filepath.Join("locales", lang+".json"))
		require.NoError(t, err)
		var m map[string]string
		require.NoError(t, json.Unmarshal(data, &m))
		catalogs[lang] = m
	}

	for lang, m := range catalogs {
		for key, en := range catalogs["en"] {
			v, ok := m[key]
			if !assert.True(t, ok, "%s is missing %q", lang, key) {
				continue
			}
			assert.Equal(t, strings.Count(en, "%s"), strings.Count(v, "%s"), "%s %q verbs", lang, key)
		}
	}
}
