package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/hkogrunt/grunt/models"
)

// maxSuffix bounds the collision counter so a broken directory cannot spin forever.
const maxSuffix = 100000

const copyBufferSize = 64 * 1024

// SplitName splits a file name into stem and extension the way collision
// suffixes are applied: "a.tar.gz" -> ("a.tar", ".gz"), ".env" -> (".env", "").
func SplitName(name string) (string, string) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return name, ""
	}
	return stem, ext
}

// SuffixedName returns name for n == 0 and stem_n.ext otherwise.
func SuffixedName(name string, n int) string {
	if n == 0 {
		return name
	}
	stem, ext := SplitName(name)
	return stem + "_" + strconv.Itoa(n) + ext
}

// PlaceFile copies or moves src into dir as name. When name is taken it tries
// name_1.ext, name_2.ext, ... An existing file is never overwritten. In move
// mode the source is removed only after the destination is complete.
// It returns the path that was written.
func PlaceFile(src, dir, name string, mode models.Mode) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	for n := 0; n < maxSuffix; n++ {
		candidate := filepath.Join(dir, SuffixedName(name, n))
		if _, err := os.Lstat(candidate); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		var err error
		if mode == models.ModeMove {
			err = moveNoReplace(src, candidate)
		} else {
			err = copyNoReplace(src, candidate)
		}
		if errors.Is(err, fs.ErrExist) {
			// Someone created the name between Lstat and create.
			continue
		}
		if err != nil {
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %q in %s", name, dir)
}

// copyNoReplace copies src to dst, failing with fs.ErrExist if dst exists.
// The modification time is preserved.
func copyNoReplace(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	buf := make([]byte, copyBufferSize)
	if _, err = io.CopyBuffer(out, in, buf); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// moveNoReplace links src to dst and unlinks src. Where hard links are not
// possible (other filesystem, unsupported) it falls back to copy + remove.
func moveNoReplace(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	linkErr := os.Link(src, dst)
	if errors.Is(linkErr, fs.ErrExist) {
		return linkErr
	}
	if linkErr != nil {
		if err := copyNoReplace(src, dst); err != nil {
			return err
		}
	}

	if err := os.Remove(src); err != nil {
		// Roll back so the file exists exactly once.
		_ = os.Remove(dst)
		return fmt.Errorf("failed to remove source after move: %w", err)
	}
	return nil
}

// MoveEntry renames src (file or directory) to a free name in dir, returning
// the final path. Used for quarantining whole folders.
func MoveEntry(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	name := filepath.Base(src)
	for n := 0; n < maxSuffix; n++ {
		candidate := filepath.Join(dir, SuffixedName(name, n))
		if _, err := os.Lstat(candidate); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if err := os.Rename(src, candidate); err != nil {
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %q in %s", name, dir)
}

// WriteFileAtomic writes data to dir/name through a temp file and rename,
// replacing any previous content.
func WriteFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return err
	}

	_ = syncDirBestEffort(dir)
	return nil
}

func syncDirBestEffort(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// WriteFileNoReplace writes data to dir/name through a temp file, never
// replacing an existing file: a taken name gets a numeric suffix. It returns
// the final path.
func WriteFileNoReplace(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	for n := 0; n < maxSuffix; n++ {
		candidate := filepath.Join(dir, SuffixedName(name, n))
		err := os.Link(tmpName, candidate)
		if err == nil {
			_ = syncDirBestEffort(dir)
			return candidate, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		// No hard links here: create the name exclusively and copy.
		err = copyNoReplace(tmpName, candidate)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %q in %s", name, dir)
}

// IsUnder reports whether p equals base or lies inside it. Both must be clean.
func IsUnder(p, base string) bool {
	if p == base {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(base, string(filepath.Separator))+string(filepath.Separator))
}

// AbsClean resolves p to a clean absolute path.
func AbsClean(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// ResolvePath is AbsClean followed by symlink resolution, so a linked folder
// is walked at its target. A path that does not exist is returned unresolved.
func ResolvePath(p string) (string, error) {
	abs, err := AbsClean(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// PathForms returns the absolute form of p and, when it differs, its
// resolved form. Exclusion lists hold both so a match is found either way.
func PathForms(p string) []string {
	abs, err := AbsClean(p)
	if err != nil {
		return nil
	}
	forms := []string{abs}
	if resolved, err := ResolvePath(abs); err == nil && resolved != abs {
		forms = append(forms, resolved)
	}
	return forms
}
