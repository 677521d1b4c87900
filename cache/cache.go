package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hkogrunt/grunt/cache/contracts"
	"github.com/hkogrunt/grunt/models"
	"github.com/zeebo/xxh3"
)

const cacheFileSuffix = ".cache"

// CacheEntry is the on-disk record for one file digest.
type CacheEntry struct {
	Path      string
	Algorithm string
	Digest    string
	FileSize  int64
	ModTime   time.Time
	Timestamp time.Time
}

// FileCache stores one gob-encoded entry per file under cacheDir.
type FileCache struct {
	cacheDir string
	mutex    sync.RWMutex
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheManager provides high-level digest caching
type CacheManager struct {
	fileCache *FileCache
	stats     *CacheStats
}

var _ contracts.IDigestCache = (*CacheManager)(nil)

// NewCacheManager creates the cache directory if needed.
func NewCacheManager(cacheDir string) (*CacheManager, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("cache directory must not be empty")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &CacheManager{
		fileCache: &FileCache{cacheDir: cacheDir},
		stats:     &CacheStats{LastResetTime: time.Now()},
	}, nil
}

// Dir returns the cache directory.
func (cm *CacheManager) Dir() string {
	return cm.fileCache.cacheDir
}

// generateCacheKey creates a unique cache key for a file and algorithm
func (fc *FileCache) generateCacheKey(filePath, algorithm string) string {
	hash := xxh3.HashString(algorithm + "\x00" + filePath)
	return fmt.Sprintf("%016x%s", hash, cacheFileSuffix)
}

func (fc *FileCache) getCachePath(cacheKey string) string {
	return filepath.Join(fc.cacheDir, cacheKey)
}

func (fc *FileCache) get(filePath, algorithm string) (*CacheEntry, bool) {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	data, err := os.ReadFile(fc.getCachePath(fc.generateCacheKey(filePath, algorithm)))
	if err != nil {
		return nil, false
	}

	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, false
	}
	// xxh3 collisions are unlikely but the path is stored to rule them out.
	if entry.Path != filePath || entry.Algorithm != algorithm {
		return nil, false
	}
	return &entry, true
}

func (fc *FileCache) set(entry CacheEntry) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	cachePath := fc.getCachePath(fc.generateCacheKey(entry.Path, entry.Algorithm))
	if err := os.WriteFile(cachePath, buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func (fc *FileCache) delete(filePath, algorithm string) {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()
	_ = os.Remove(fc.getCachePath(fc.generateCacheKey(filePath, algorithm)))
}

// GetDigest returns the cached digest if the file's size and mtime still match.
func (cm *CacheManager) GetDigest(file models.FileRecord, algorithm string) (string, bool) {
	entry, found := cm.fileCache.get(file.Path, algorithm)
	if !found {
		cm.recordCacheMiss()
		return "", false
	}

	if entry.FileSize != file.Size || !entry.ModTime.Equal(file.ModTime) {
		cm.fileCache.delete(file.Path, algorithm)
		cm.recordCacheMiss()
		return "", false
	}

	cm.recordCacheHit()
	return entry.Digest, true
}

// SetDigest stores digest for the file snapshot.
func (cm *CacheManager) SetDigest(file models.FileRecord, algorithm string, digest string) error {
	return cm.fileCache.set(CacheEntry{
		Path:      file.Path,
		Algorithm: algorithm,
		Digest:    digest,
		FileSize:  file.Size,
		ModTime:   file.ModTime,
		Timestamp: time.Now(),
	})
}

// GetCacheStats returns cache statistics
func (cm *CacheManager) GetCacheStats() (map[string]interface{}, error) {
	files, err := cm.cacheFiles()
	if err != nil {
		return nil, err
	}

	var totalSize int64
	for _, f := range files {
		totalSize += f.size
	}

	stats := cm.GetPerformanceStats()
	stats["cache_files"] = len(files)
	stats["total_size"] = totalSize
	stats["cache_dir"] = cm.fileCache.cacheDir
	return stats, nil
}

// CleanExpiredCache removes entries written before now-maxAge and returns how many were removed.
func (cm *CacheManager) CleanExpiredCache(maxAge time.Duration) (int, error) {
	files, err := cm.cacheFiles()
	if err != nil {
		return 0, err
	}

	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, f := range files {
		entryAge := f.modTime
		if data, err := os.ReadFile(f.path); err == nil {
			var entry CacheEntry
			if gob.NewDecoder(bytes.NewReader(data)).Decode(&entry) == nil {
				entryAge = entry.Timestamp
			}
		}
		if entryAge.Before(cutoff) {
			if os.Remove(f.path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// ClearCache removes every cache entry and returns how many were removed.
func (cm *CacheManager) ClearCache() (int, error) {
	files, err := cm.cacheFiles()
	if err != nil {
		return 0, err
	}

	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	deleted := 0
	for _, f := range files {
		if err := os.Remove(f.path); err == nil {
			deleted++
		}
	}
	cm.ResetPerformanceStats()
	return deleted, nil
}

type cacheFile struct {
	path    string
	size    int64
	modTime time.Time
}

func (cm *CacheManager) cacheFiles() ([]cacheFile, error) {
	cm.fileCache.mutex.RLock()
	defer cm.fileCache.mutex.RUnlock()

	entries, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	files := make([]cacheFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), cacheFileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{
			path:    filepath.Join(cm.fileCache.cacheDir, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return files, nil
}
