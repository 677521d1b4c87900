package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the root of a walked source folder.
const IgnoreFileName = ".gruntignore"

var defaultIgnoredDirs = []string{
	".git",
	".svn",
	".hg",
	".idea",
	".vscode",
	".venv",
	"venv",
	"node_modules",
	"__pycache__",
	".cache",
}

// DefaultIgnoredDirs returns the directory names skipped by code walks.
func DefaultIgnoredDirs() []string {
	out := make([]string, len(defaultIgnoredDirs))
	copy(out, defaultIgnoredDirs)
	return out
}

// IgnoreMatcher decides which paths a code walk skips.
type IgnoreMatcher struct {
	dirs     map[string]struct{}
	patterns []string
}

// NewIgnoreMatcher combines directory names with the patterns in root/.gruntignore.
// A missing ignore file is not an error.
func NewIgnoreMatcher(root string, dirNames []string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{dirs: make(map[string]struct{}, len(dirNames))}
	for _, d := range dirNames {
		d = strings.ToLower(strings.Trim(strings.TrimSpace(d), "/"))
		if d != "" {
			m.dirs[d] = struct{}{}
		}
	}

	patterns, err := readIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	m.patterns = patterns
	return m, nil
}

// Match reports whether rel (relative to the walk root) is ignored.
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	base := path.Base(rel)

	if isDir {
		if _, ok := m.dirs[strings.ToLower(base)]; ok {
			return true
		}
	}

	for _, pattern := range m.patterns {
		if strings.HasSuffix(pattern, "/") {
			dir := strings.TrimSuffix(pattern, "/")
			if isDir && (rel == dir || matchPattern(dir, base)) {
				return true
			}
			if strings.HasPrefix(rel, dir+"/") {
				return true
			}
			continue
		}
		if matchPattern(pattern, rel) || matchPattern(pattern, base) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// readIgnoreFile returns the non-comment lines of an ignore file.
func readIgnoreFile(p string) ([]string, error) {
	content, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, strings.TrimPrefix(line, "/"))
		}
	}
	return patterns, nil
}
