package duplicates

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hkogrunt/grunt/cache"
	"github.com/hkogrunt/grunt/hasher"
	"github.com/hkogrunt/grunt/logger"
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/quarantine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyHasher counts Hash calls per path and can fail chosen paths.
type spyHasher struct {
	inner *hasher.Hasher
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newSpy(t *testing.T) *spyHasher {
	t.Helper()
	h, err := hasher.New(hasher.SHA256)
	require.NoError(t, err)
	return &spyHasher{inner: h, calls: map[string]int{}, fail: map[string]bool{}}
}

func (s *spyHasher) Hash(path string) (string, error) {
	s.mu.Lock()
	s.calls[path]++
	fail := s.fail[path]
	s.mu.Unlock()
	if fail {
		return "", &hasher.IOError{Path: path, Err: os.ErrNotExist}
	}
	return s.inner.Hash(path)
}

func (s *spyHasher) Algorithm() string { return s.inner.Algorithm() }

func (s *spyHasher) total() int {
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func writeFile(t *testing.T, path string, content []byte, mtime time.Time) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	return path
}

func filled(n int, b byte) []byte {
	return []byte(strings.Repeat(string(b), n))
}

func newDetector(spy *spyHasher, minSize int64) (*Detector, *logger.Recorder) {
	rec := &logger.Recorder{}
	return &Detector{Hasher: spy, Logger: rec, MinSize: minSize}, rec
}

func paths(g models.DuplicateGroup) []string {
	var out []string
	for _, m := range g.Members {
		out = append(out, m.Path)
	}
	return out
}

func TestFind_GroupsIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := writeFile(t, filepath.Join(dir, "a.bin"), filled(2048, 'x'), base.Add(time.Hour))
	b := writeFile(t, filepath.Join(dir, "sub", "b.bin"), filled(2048, 'x'), base)
	c := writeFile(t, filepath.Join(dir, "c.bin"), filled(2048, 'y'), base)
	d := writeFile(t, filepath.Join(dir, "d.bin"), filled(4096, 'x'), base)

	spy := newSpy(t)
	det, _ := newDetector(spy, 0)

	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, scan.Status)
	require.Len(t, scan.Groups, 1)

	g := scan.Groups[0]
	assert.Equal(t, int64(2048), g.Size)
	// Oldest first.
	assert.Equal(t, []string{b, a}, paths(g))
	assert.Equal(t, b, g.Original().Path)
	assert.Equal(t, int64(2048), g.Reclaimable())

	assert.Equal(t, 1, spy.calls[c])
	assert.Zero(t, spy.calls[d], "unique size must not be hashed")
	assert.Equal(t, 4, scan.FilesScanned)
	assert.Equal(t, 3, scan.FilesHashed)
}

func TestFind_DifferentSizesNeverHashed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "small.txt"), filled(100, 'a'), time.Time{})
	writeFile(t, filepath.Join(dir, "large.txt"), filled(200, 'a'), time.Time{})

	spy := newSpy(t)
	det, _ := newDetector(spy, 0)

	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Empty(t, scan.Groups)
	assert.Zero(t, spy.total())
}

func TestFind_MinSizeExcludesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.txt"), filled(100, 'a'), time.Time{})
	writeFile(t, filepath.Join(dir, "two.txt"), filled(100, 'a'), time.Time{})

	spy := newSpy(t)
	det, _ := newDetector(spy, 10*1024)

	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Empty(t, scan.Groups)
	assert.Zero(t, spy.total())
}

func TestFind_GroupOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"s1", "s2"} {
		writeFile(t, filepath.Join(dir, name), filled(10, 's'), time.Time{})
	}
	for _, name := range []string{"l1", "l2"} {
		writeFile(t, filepath.Join(dir, name), filled(50, 'l'), time.Time{})
	}

	det, _ := newDetector(newSpy(t), 0)
	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, scan.Groups, 2)
	assert.Equal(t, int64(50), scan.Groups[0].Size)
	assert.Equal(t, int64(10), scan.Groups[1].Size)
	assert.Equal(t, int64(60), scan.Reclaimable())
}

func TestFind_EqualModTimesKeepScanOrder(t *testing.T) {
	dir := t.TempDir()
	same := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	// Created out of lexical order; the walk visits a2, b1, c3.
	c := writeFile(t, filepath.Join(dir, "c3.dat"), filled(128, 'm'), same)
	b := writeFile(t, filepath.Join(dir, "b1.dat"), filled(128, 'm'), same)
	a := writeFile(t, filepath.Join(dir, "a2.dat"), filled(128, 'm'), same)

	det, _ := newDetector(newSpy(t), 0)
	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, scan.Groups, 1)

	g := scan.Groups[0]
	assert.Equal(t, []string{a, b, c}, paths(g))
	assert.Equal(t, a, g.Original().Path)
	assert.Equal(t, int64(256), g.Reclaimable())
}

func TestFind_FollowsLinkedRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "OneDrive", "Desktop")
	writeFile(t, filepath.Join(target, "a.bin"), filled(2048, 'x'), time.Time{})
	writeFile(t, filepath.Join(target, "b.bin"), filled(2048, 'x'), time.Time{})
	writeFile(t, filepath.Join(target, "HKO_METAVERSE", "c.bin"), filled(2048, 'x'), time.Time{})
	link := filepath.Join(base, "Desktop")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	det, rec := newDetector(newSpy(t), 0)
	det.Exclude = []string{filepath.Join(link, "HKO_METAVERSE")}
	scan, err := det.Find(context.Background(), []string{link})
	require.NoError(t, err)
	assert.Equal(t, 2, scan.FilesScanned)
	require.Len(t, scan.Groups, 1)
	assert.Len(t, scan.Groups[0].Members, 2)
	assert.Zero(t, rec.Count(logger.LevelWarning))
}

func TestFind_OverlappingRootsDoNotDoubleCount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), filled(64, 'z'), time.Time{})
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), filled(64, 'z'), time.Time{})

	det, _ := newDetector(newSpy(t), 0)
	scan, err := det.Find(context.Background(), []string{dir, filepath.Join(dir, "sub"), dir})
	require.NoError(t, err)
	require.Len(t, scan.Groups, 1)
	assert.Len(t, scan.Groups[0].Members, 2)
	assert.Equal(t, 2, scan.FilesScanned)
}

func TestFind_SkipsSymlinksAndExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, filepath.Join(dir, "real.txt"), filled(64, 'q'), time.Time{})
	writeFile(t, filepath.Join(dir, "QUARANTINE", "copy.txt"), filled(64, 'q'), time.Time{})
	if err := os.Symlink(target, filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	det, _ := newDetector(newSpy(t), 0)
	det.Exclude = []string{filepath.Join(dir, "QUARANTINE")}
	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Empty(t, scan.Groups)
	assert.Equal(t, 1, scan.FilesScanned)
}

func TestFind_UnreadableFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), filled(32, 'k'), time.Time{})
	b := writeFile(t, filepath.Join(dir, "b"), filled(32, 'k'), time.Time{})
	gone := writeFile(t, filepath.Join(dir, "c"), filled(32, 'k'), time.Time{})

	spy := newSpy(t)
	spy.fail[gone] = true
	det, rec := newDetector(spy, 0)

	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, scan.Groups, 1)
	assert.ElementsMatch(t, []string{a, b}, paths(scan.Groups[0]))
	assert.Equal(t, 1, scan.Unreadable)
	assert.Equal(t, 1, rec.Count(logger.LevelWarning))
}

func TestFind_MissingRootIsWarned(t *testing.T) {
	det, rec := newDetector(newSpy(t), 0)
	scan, err := det.Find(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, scan.Status)
	assert.Equal(t, 1, rec.Count(logger.LevelWarning))
}

func TestFind_Cancellation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 6; i++ {
		writeFile(t, filepath.Join(dir, string(rune('a'+i))), filled(16, 'c'), time.Time{})
	}

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		det, _ := newDetector(newSpy(t), 0)
		scan, err := det.Find(ctx, []string{dir})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, scan.Status)
		assert.Nil(t, scan.Groups)
	})

	t.Run("while hashing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		spy := newSpy(t)
		det, _ := newDetector(spy, 0)
		det.OnProgress = func(p models.Progress) {
			if p.Done == 2 {
				cancel()
			}
		}
		scan, err := det.Find(ctx, []string{dir})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, scan.Status)
		assert.Nil(t, scan.Groups)
		assert.Equal(t, 2, spy.total())
	})
}

func TestFind_UsesDigestCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a"), filled(128, 'm'), time.Time{})
	writeFile(t, filepath.Join(dir, "b"), filled(128, 'm'), time.Time{})

	cm, err := cache.NewCacheManager(filepath.Join(t.TempDir(), ".cache"))
	require.NoError(t, err)

	first := newSpy(t)
	det, _ := newDetector(first, 0)
	det.Cache = cm
	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, scan.Groups, 1)
	assert.Equal(t, 2, first.total())

	second := newSpy(t)
	det.Hasher = second
	scan, err = det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, scan.Groups, 1)
	assert.Zero(t, second.total())
}

func TestQuarantineDuplicates_KeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orig := writeFile(t, filepath.Join(dir, "orig.doc"), filled(64, 'd'), base)
	dup1 := writeFile(t, filepath.Join(dir, "copy1.doc"), filled(64, 'd'), base.Add(time.Minute))
	dup2 := writeFile(t, filepath.Join(dir, "copy2.doc"), filled(64, 'd'), base.Add(2*time.Minute))

	det, _ := newDetector(newSpy(t), 0)
	det.Exclude = []string{filepath.Join(dir, "QUARANTINE")}
	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, scan.Groups, 1)

	store, err := quarantine.New(filepath.Join(dir, "QUARANTINE"))
	require.NoError(t, err)

	report := det.QuarantineDuplicates(context.Background(), scan.Groups, store)
	assert.Equal(t, models.StatusCompleted, report.Status)
	assert.Equal(t, 2, report.Succeeded)
	assert.FileExists(t, orig)
	assert.NoFileExists(t, dup1)
	assert.NoFileExists(t, dup2)

	entries, err := store.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestQuarantineDuplicates_SkipsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(dir, "orig"), filled(64, 'd'), base)
	dup := writeFile(t, filepath.Join(dir, "dup"), filled(64, 'd'), base.Add(time.Minute))

	det, rec := newDetector(newSpy(t), 0)
	scan, err := det.Find(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, scan.Groups, 1)

	writeFile(t, dup, filled(80, 'e'), time.Time{})

	store, err := quarantine.New(filepath.Join(t.TempDir(), "QUARANTINE"))
	require.NoError(t, err)
	report := det.QuarantineDuplicates(context.Background(), scan.Groups, store)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Succeeded)
	assert.FileExists(t, dup)
	assert.Equal(t, 1, rec.Count(logger.LevelWarning))
}
