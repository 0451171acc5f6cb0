package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceExt(t *testing.T) {
	tests := []struct {
		path string
		ext  string
		want string
	}{
		{"a/b.json", "csv", "a/b.csv"},
		{"a/b.json", ".yaml", "a/b.yaml"},
		{"a/README", "md", "a/README.md"},
		{"a/.env", "bak", "a/.env.bak"},
		{"", "json", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReplaceExt(tt.path, tt.ext), tt.path)
	}
}

func TestWithLanguage(t *testing.T) {
	assert.Equal(t, filepath.Join("docs", "app.fr.json"), WithLanguage("docs/app.json", "fr"))
	assert.Equal(t, filepath.Join("docs", "notes.zh-Hans"), WithLanguage("docs/notes", "zh-Hans"))
	assert.Equal(t, "docs/app.json", WithLanguage("docs/app.json", ""))
}

func TestFindByPrefix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"translations-2.json", "translations-1.json", "other.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "translations-dir"), 0o755))

	got, err := FindByPrefix(dir, "translations-")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "translations-1.json"),
		filepath.Join(dir, "translations-2.json"),
	}, got)
}
