package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreMatcher(t *testing.T) {
	root := t.TempDir()
	content := "# build output\nbuild/\n*.min.js\n/secrets.json\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFileName), []byte(content), 0o644))

	m, err := NewIgnoreMatcher(root, DefaultIgnoredDirs())
	require.NoError(t, err)

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{".git", true, true},
		{"src/node_modules", true, true},
		{"src/Node_Modules", true, true},
		{"build", true, true},
		{"build/out.js", false, true},
		{"web/app.min.js", false, true},
		{"secrets.json", false, true},
		{"src/main.py", false, false},
		{"src/.git.py", false, false},
		{"docs", true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Match(tt.rel, tt.isDir), tt.rel)
	}
}

func TestIgnoreMatcher_NoIgnoreFile(t *testing.T) {
	m, err := NewIgnoreMatcher(t.TempDir(), nil)
	require.NoError(t, err)
	assert.False(t, m.Match(".git", true))
}

func TestGetSupportedLanguage(t *testing.T) {
	assert.Equal(t, "go", GetSupportedLanguage("main.go"))
	assert.Equal(t, "python", GetSupportedLanguage("x/Y.PY"))
	assert.Equal(t, "typescript", GetSupportedLanguage("app.tsx"))
	assert.Equal(t, "", GetSupportedLanguage("notes.txt"))
}

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, ".py", NormalizeExtension("PY"))
	assert.Equal(t, ".md", NormalizeExtension(" .md "))
	assert.Equal(t, "", NormalizeExtension(""))
}
