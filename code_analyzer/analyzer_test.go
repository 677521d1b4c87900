package code_analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hkogrunt/grunt/logger"
	"github.com/hkogrunt/grunt/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeExts = []string{".py", ".js", ".go", "HTML"}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newAnalyzer() (*CodeAnalyzer, *logger.Recorder) {
	rec := &logger.Recorder{}
	return NewCodeAnalyzer(rec, nil), rec
}

func sampleProject(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "project")
	writeFile(t, filepath.Join(src, "main.py"), "print('hi')\n")
	writeFile(t, filepath.Join(src, "web", "index.html"), "<html></html>\n")
	writeFile(t, filepath.Join(src, "web", "app.JS"), "let x = 1;\n")
	writeFile(t, filepath.Join(src, "notes.docx"), "not code")
	writeFile(t, filepath.Join(src, "node_modules", "dep", "index.js"), "ignored")
	writeFile(t, filepath.Join(src, ".git", "hooks", "pre-commit.py"), "ignored")
	return src
}

func TestExtract_MirrorsRelativePaths(t *testing.T) {
	src := sampleProject(t)
	repo := filepath.Join(t.TempDir(), "Code_Repository")
	analyzer, _ := newAnalyzer()

	report, err := analyzer.Extract(context.Background(), src, repo, codeExts)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, report.Status)
	assert.Equal(t, 3, report.Succeeded)

	assert.FileExists(t, filepath.Join(repo, "main.py"))
	assert.FileExists(t, filepath.Join(repo, "web", "index.html"))
	assert.FileExists(t, filepath.Join(repo, "web", "app.JS"))
	assert.NoFileExists(t, filepath.Join(repo, "notes.docx"))
	assert.NoDirExists(t, filepath.Join(repo, "node_modules"))
	assert.NoDirExists(t, filepath.Join(repo, ".git"))
	// Extraction copies.
	assert.FileExists(t, filepath.Join(src, "main.py"))
}

func TestExtract_FollowsLinkedSource(t *testing.T) {
	src := sampleProject(t)
	link := filepath.Join(t.TempDir(), "linked")
	if err := os.Symlink(src, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	repo := filepath.Join(t.TempDir(), "Code_Repository")
	analyzer, rec := newAnalyzer()

	report, err := analyzer.Extract(context.Background(), link, repo, codeExts)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.FileExists(t, filepath.Join(repo, "web", "app.JS"))
	assert.Zero(t, rec.Count(logger.LevelWarning))
}

func TestExtract_EmptyIgnoreListCopiesEverything(t *testing.T) {
	src := sampleProject(t)
	repo := filepath.Join(t.TempDir(), "Code_Repository")
	analyzer := NewCodeAnalyzer(&logger.Recorder{}, []string{})

	report, err := analyzer.Extract(context.Background(), src, repo, codeExts)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Succeeded)
	assert.FileExists(t, filepath.Join(repo, "node_modules", "dep", "index.js"))
	assert.FileExists(t, filepath.Join(repo, ".git", "hooks", "pre-commit.py"))
}

func TestExtract_NeverOverwrites(t *testing.T) {
	src := sampleProject(t)
	repo := filepath.Join(t.TempDir(), "Code_Repository")
	analyzer, _ := newAnalyzer()

	_, err := analyzer.Extract(context.Background(), src, repo, codeExts)
	require.NoError(t, err)
	report, err := analyzer.Extract(context.Background(), src, repo, codeExts)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.FileExists(t, filepath.Join(repo, "main_1.py"))
	assert.FileExists(t, filepath.Join(repo, "web", "index_1.html"))
}

func TestExtract_RepositoryInsideSourceIsNotWalked(t *testing.T) {
	src := sampleProject(t)
	repo := filepath.Join(src, "METAVERSE_LIBRARY", "Code_Repository")
	writeFile(t, filepath.Join(repo, "old.py"), "already extracted")
	analyzer, _ := newAnalyzer()

	report, err := analyzer.Extract(context.Background(), src, repo, codeExts)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.NoFileExists(t, filepath.Join(repo, "METAVERSE_LIBRARY", "Code_Repository", "old.py"))
	assert.NoFileExists(t, filepath.Join(repo, "old_1.py"))
}

func TestExtract_SourceInsideRepositoryIsRejected(t *testing.T) {
	repo := t.TempDir()
	src := filepath.Join(repo, "nested")
	require.NoError(t, os.MkdirAll(src, 0o755))
	analyzer, _ := newAnalyzer()

	_, err := analyzer.Extract(context.Background(), src, repo, codeExts)
	assert.Error(t, err)
}

func TestExtract_IgnoreFile(t *testing.T) {
	src := sampleProject(t)
	writeFile(t, filepath.Join(src, ".gruntignore"), "# local\nweb/\n")
	repo := filepath.Join(t.TempDir(), "Code_Repository")
	analyzer, _ := newAnalyzer()

	report, err := analyzer.Extract(context.Background(), src, repo, codeExts)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.NoDirExists(t, filepath.Join(repo, "web"))
}

func TestExtract_Cancellation(t *testing.T) {
	src := sampleProject(t)
	repo := filepath.Join(t.TempDir(), "Code_Repository")
	analyzer, _ := newAnalyzer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	analyzer.OnProgress = func(p models.Progress) {
		if p.Done == 1 {
			cancel()
		}
	}

	report, err := analyzer.Extract(ctx, src, repo, codeExts)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.Equal(t, 1, report.Succeeded)
}

func TestExtract_MissingSource(t *testing.T) {
	analyzer, _ := newAnalyzer()
	_, err := analyzer.Extract(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir(), codeExts)
	assert.Error(t, err)
}

func aiPrepFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, AIPrepPrefix+"*.txt"))
	require.NoError(t, err)
	return matches
}

func TestPrepareForAI_Full(t *testing.T) {
	src := filepath.Join(t.TempDir(), "project")
	writeFile(t, filepath.Join(src, "b", "tool.py"), "def run():\n    return 1\n")
	require.NoError(t, os.WriteFile(filepath.Join(src, "broken.js"), []byte{'o', 'k', 0xff, '!'}, 0o644))
	out := filepath.Join(t.TempDir(), "METAVERSE_LIBRARY")
	analyzer, _ := newAnalyzer()

	result, err := analyzer.PrepareForAI(context.Background(), src, out, codeExts, models.PrepFull)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, aiPrepFiles(t, out), []string{result.Path})

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	text := string(data)

	sep := strings.Repeat("=", 60)
	assert.Contains(t, text, "\n"+sep+"\nFile: b/tool.py\nLanguage: Python")
	assert.Contains(t, text, sep+"\n\ndef run():\n    return 1\n\n")
	assert.Contains(t, text, "File: broken.js")
	assert.Contains(t, text, "\n\nok!\n")
	// Lexical walk order: the "b" folder sorts before "broken.js".
	assert.Less(t, strings.Index(text, "b/tool.py"), strings.Index(text, "broken.js"))
	assert.Equal(t, len(data), result.Bytes)
}

func TestPrepareForAI_SameSecondKeepsEarlierFile(t *testing.T) {
	first := filepath.Join(t.TempDir(), "first")
	writeFile(t, filepath.Join(first, "a.py"), "A = 1\n")
	second := filepath.Join(t.TempDir(), "second")
	writeFile(t, filepath.Join(second, "b.py"), "B = 2\n")
	out := t.TempDir()

	analyzer, _ := newAnalyzer()
	fixed := mustTime(t, "2026-10-17T06:18:17Z")
	analyzer.now = func() time.Time { return fixed }

	r1, err := analyzer.PrepareForAI(context.Background(), first, out, codeExts, models.PrepFull)
	require.NoError(t, err)
	r2, err := analyzer.PrepareForAI(context.Background(), second, out, codeExts, models.PrepFull)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "AI_PREP_20261017_061817.txt"), r1.Path)
	assert.Equal(t, filepath.Join(out, "AI_PREP_20261017_061817_1.txt"), r2.Path)
	assert.Len(t, aiPrepFiles(t, out), 2)

	data, err := os.ReadFile(r1.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "A = 1")
	assert.NotContains(t, string(data), "B = 2")
}

func TestPrepareForAI_Outline(t *testing.T) {
	src := filepath.Join(t.TempDir(), "project")
	writeFile(t, filepath.Join(src, "server.go"), "package demo\n\ntype Server struct{}\n\nfunc New() *Server { return nil }\n\nfunc (s *Server) Run() error { return nil }\n")
	out := t.TempDir()
	analyzer, _ := newAnalyzer()

	result, err := analyzer.PrepareForAI(context.Background(), src, out, codeExts, models.PrepOutline)
	require.NoError(t, err)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "type: Server (line 3)\nfunction: New (line 5)\nmethod: Run (line 7)\n")
	assert.NotContains(t, string(data), "return nil")
}

func TestPrepareForAI_CancelledWritesNothing(t *testing.T) {
	src := sampleProject(t)
	out := t.TempDir()
	analyzer, _ := newAnalyzer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	analyzer.OnProgress = func(p models.Progress) {
		if p.Done == 1 {
			cancel()
		}
	}

	result, err := analyzer.PrepareForAI(ctx, src, out, codeExts, models.PrepFull)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, result.Status)
	assert.Empty(t, result.Path)
	assert.Empty(t, aiPrepFiles(t, out))
}

func TestOutline(t *testing.T) {
	py := []byte("class Greeter:\n    def hello(self):\n        pass\n")
	assert.Equal(t, []string{"class: Greeter (line 1)", "function: hello (line 2)"},
		Outline(context.Background(), "greet.py", py))

	plain := []byte("line one\nline two\n")
	assert.Equal(t, []string{"line one", "line two"}, Outline(context.Background(), "notes.html", plain))
}

func TestAIPrepFileName(t *testing.T) {
	name := AIPrepFileName(mustTime(t, "2024-02-03T04:05:06Z"))
	assert.Equal(t, "AI_PREP_20240203_040506.txt", name)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
