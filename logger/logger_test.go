package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lineRe = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[(INFO|WARNING|ERROR|SYSTEM)\] .+$`)

func TestLogger_WritesFormattedLines(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	l, err := New(Options{Dir: dir, Console: &console})
	require.NoError(t, err)
	defer l.Close()

	l.Info("scanning %d files", 3)
	l.Warning("cannot read %s", "/x")
	l.Error("copy failed")
	l.System("config fallback")

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.Regexp(t, lineRe, line)
	}
	assert.Contains(t, lines[0], "[INFO] scanning 3 files")
	assert.Contains(t, lines[1], "[WARNING] cannot read /x")
	assert.Contains(t, lines[3], "[SYSTEM] config fallback")
	assert.Contains(t, console.String(), "copy failed")
}

func TestLogger_AppendsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	l1, err := New(Options{Dir: dir})
	require.NoError(t, err)
	l1.Info("first")
	require.NoError(t, l1.Close())

	l2, err := New(Options{Dir: dir})
	require.NoError(t, err)
	l2.Info("second")
	require.NoError(t, l2.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

func TestLogger_QuietEchoesOnlyProblems(t *testing.T) {
	var console bytes.Buffer
	l, err := New(Options{Dir: t.TempDir(), Console: &console, Quiet: true})
	require.NoError(t, err)
	defer l.Close()

	l.Info("hidden")
	l.Warning("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestLogger_Rotate(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Options{Dir: dir})
	require.NoError(t, err)
	defer l.Close()

	l.Info("before rotation")
	require.NoError(t, l.Rotate())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var backups []string
	for _, e := range entries {
		if e.Name() != FileName && strings.HasPrefix(e.Name(), "grunt_log-") {
			backups = append(backups, e.Name())
		}
	}
	require.Len(t, backups, 1)

	old, err := os.ReadFile(filepath.Join(dir, backups[0]))
	require.NoError(t, err)
	assert.Contains(t, string(old), "before rotation")

	current, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.NotContains(t, string(current), "before rotation")
	assert.Contains(t, string(current), "[SYSTEM] Log rotated")
}

func TestLogger_RotateIfNeeded(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Options{Dir: dir})
	require.NoError(t, err)
	defer l.Close()

	l.Info("small")
	rotated, err := l.RotateIfNeeded()
	require.NoError(t, err)
	assert.False(t, rotated)
	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)

	size, limit := l.Size()
	assert.Equal(t, int64(DefaultMaxSizeMB)*megabyte, limit)
	assert.Positive(t, size)

	l.maxBytes = size
	rotated, err = l.RotateIfNeeded()
	require.NoError(t, err)
	assert.True(t, rotated)

	current, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.NotContains(t, string(current), "small")
}

func TestFormatLine(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	assert.Equal(t, "[2024-03-09 07:05:01] [ERROR] a b", FormatLine(ts, LevelError, "a\nb"))
}

func TestRecorder_Count(t *testing.T) {
	r := &Recorder{}
	r.Warning("w1")
	r.Warning("w2 %d", 2)
	r.Info("100% done")

	assert.Equal(t, 2, r.Count(LevelWarning))
	assert.Equal(t, "[INFO] 100% done", r.Lines[2])
}
