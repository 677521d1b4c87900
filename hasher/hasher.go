package hasher

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/hkogrunt/grunt/hasher/contracts"
)

const (
	SHA256 = "sha256"
	MD5    = "md5"
)

// BlockSize bounds the memory used per file regardless of its size.
const BlockSize = 64 * 1024

// Algorithms lists the supported digest algorithms.
var Algorithms = []string{SHA256, MD5}

var ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

// UnsupportedAlgorithmError names the rejected algorithm.
type UnsupportedAlgorithmError struct {
	Algorithm string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported hash algorithm %q (want one of %s)", e.Algorithm, strings.Join(Algorithms, ", "))
}

func (e *UnsupportedAlgorithmError) Unwrap() error { return ErrUnsupportedAlgorithm }

// IOError reports a file that could not be opened or read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to hash %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsIOError reports whether err is an *IOError.
func IsIOError(err error) bool {
	var e *IOError
	return errors.As(err, &e)
}

// Hasher computes hex digests using a fixed algorithm.
type Hasher struct {
	algorithm string
	newHash   func() hash.Hash
}

var _ contracts.IHasher = (*Hasher)(nil)

// New returns a Hasher for algorithm (case-insensitive).
func New(algorithm string) (*Hasher, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	switch algorithm {
	case SHA256:
		return &Hasher{algorithm: algorithm, newHash: sha256.New}, nil
	case MD5:
		return &Hasher{algorithm: algorithm, newHash: md5.New}, nil
	default:
		return nil, &UnsupportedAlgorithmError{Algorithm: algorithm}
	}
}

// Supported reports whether algorithm can be passed to New.
func Supported(algorithm string) bool {
	_, err := New(algorithm)
	return err == nil
}

func (h *Hasher) Algorithm() string { return h.algorithm }

// Hash reads path in BlockSize chunks and returns the lowercase hex digest.
func (h *Hasher) Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	defer f.Close()

	d := h.newHash()
	buf := make([]byte, BlockSize)
	if _, err := io.CopyBuffer(d, f, buf); err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// HashFile is a shortcut for New(algorithm) followed by Hash(path).
func HashFile(path, algorithm string) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	return h.Hash(path)
}
