package quarantine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/quarantine/contracts"
	"github.com/hkogrunt/grunt/utils"
)

// ManifestName is the index file kept inside the quarantine directory.
const ManifestName = ".grunt_quarantine.json"

var (
	ErrNotFound = errors.New("quarantine entry not found")
	ErrOccupied = errors.New("original path is occupied")
)

// RestoreError reports why an entry could not be put back.
type RestoreError struct {
	ID   string
	Path string
	Err  error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("cannot restore %s to %s: %v", e.ID, e.Path, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

type manifest struct {
	Entries []models.QuarantineEntry `json:"entries"`
}

// Store is a directory of quarantined entries plus a JSON manifest.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

var _ contracts.IQuarantine = (*Store)(nil)

// New opens the quarantine at dir, creating it if needed.
func New(dir string) (*Store, error) {
	dir, err := utils.AbsClean(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create quarantine %s: %w", dir, err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

// Add moves path into the quarantine under a free name and records it.
func (s *Store) Add(path, reason string) (models.QuarantineEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := utils.AbsClean(path)
	if err != nil {
		return models.QuarantineEntry{}, err
	}
	if utils.IsUnder(src, s.dir) || utils.IsUnder(s.dir, src) {
		return models.QuarantineEntry{}, fmt.Errorf("%s overlaps the quarantine directory", src)
	}
	info, err := os.Lstat(src)
	if err != nil {
		return models.QuarantineEntry{}, err
	}

	m, err := s.load()
	if err != nil {
		return models.QuarantineEntry{}, err
	}

	stored, err := utils.MoveEntry(src, s.dir)
	if err != nil && !info.IsDir() {
		// Rename fails across filesystems; files can still be copied over.
		stored, err = utils.PlaceFile(src, s.dir, filepath.Base(src), models.ModeMove)
	}
	if err != nil {
		return models.QuarantineEntry{}, fmt.Errorf("failed to quarantine %s: %w", src, err)
	}

	entry := models.QuarantineEntry{
		ID:        uuid.NewString(),
		From:      src,
		To:        stored,
		Reason:    reason,
		IsDir:     info.IsDir(),
		Timestamp: s.now(),
	}
	m.Entries = append(m.Entries, entry)
	if err := s.save(m); err != nil {
		return entry, fmt.Errorf("moved %s but failed to update manifest: %w", src, err)
	}
	return entry, nil
}

// List returns the quarantined entries, oldest first.
func (s *Store) List() ([]models.QuarantineEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	entries := append([]models.QuarantineEntry(nil), m.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// Restore moves an entry back to its original path. It refuses when that path
// already exists.
func (s *Store) Restore(id string) (models.QuarantineEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return models.QuarantineEntry{}, err
	}

	idx := -1
	for i, e := range m.Entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.QuarantineEntry{}, &RestoreError{ID: id, Err: ErrNotFound}
	}
	entry := m.Entries[idx]

	if _, err := os.Lstat(entry.From); err == nil {
		return entry, &RestoreError{ID: id, Path: entry.From, Err: ErrOccupied}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return entry, &RestoreError{ID: id, Path: entry.From, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(entry.From), 0o755); err != nil {
		return entry, &RestoreError{ID: id, Path: entry.From, Err: err}
	}

	if entry.IsDir {
		err = os.Rename(entry.To, entry.From)
	} else {
		var placed string
		placed, err = utils.PlaceFile(entry.To, filepath.Dir(entry.From), filepath.Base(entry.From), models.ModeMove)
		if err == nil && placed != entry.From {
			// The original name was taken after the check; undo.
			_ = os.Rename(placed, entry.To)
			err = ErrOccupied
		}
	}
	if err != nil {
		return entry, &RestoreError{ID: id, Path: entry.From, Err: err}
	}

	m.Entries = append(m.Entries[:idx], m.Entries[idx+1:]...)
	if err := s.save(m); err != nil {
		return entry, fmt.Errorf("restored %s but failed to update manifest: %w", entry.From, err)
	}
	return entry, nil
}

func (s *Store) load() (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read quarantine manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("quarantine manifest is corrupt: %w", err)
	}
	return &m, nil
}

func (s *Store) save(m *manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(s.dir, ManifestName, append(data, '\n'))
}
