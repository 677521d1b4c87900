package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/hkogrunt/grunt/models"
)

// ErrBusy is returned when an operation of the same kind is already running.
var ErrBusy = errors.New("operation already running")

// BusyError names the operation kind that is already running.
type BusyError struct {
	Kind string
	// OtherProcess is set when the lock is held by another process.
	OtherProcess bool
}

func (e *BusyError) Error() string {
	if e.OtherProcess {
		return fmt.Sprintf("%s is already running in another process", e.Kind)
	}
	return fmt.Sprintf("%s is already running", e.Kind)
}

func (e *BusyError) Unwrap() error { return ErrBusy }

// Event is sent on the supervisor's channel. Events are immutable values.
type Event interface {
	event()
}

// ProgressEvent reports progress of a running operation. These are dropped
// when the channel is full.
type ProgressEvent struct {
	OpID    string
	Kind    string
	Done    int
	Total   int
	Current string
}

// DoneEvent is always delivered once per operation.
type DoneEvent struct {
	OpID    string
	Kind    string
	Result  any
	Err     error
	Elapsed time.Duration
}

func (ProgressEvent) event() {}
func (DoneEvent) event()     {}

// Func is the body of an operation. It must return promptly once ctx is done.
type Func func(ctx context.Context, progress models.ProgressFunc) (any, error)

type operation struct {
	id     string
	cancel context.CancelFunc
	lock   *flock.Flock
}

// Supervisor runs long operations on background goroutines, at most one per
// kind, and reports on a single bounded channel.
type Supervisor struct {
	lockDir string
	events  chan Event

	mu      sync.Mutex
	running map[string]*operation
	wg      sync.WaitGroup
}

// New creates a supervisor. Lock files live in lockDir; an empty lockDir
// disables the cross-process check.
func New(lockDir string, buffer int) (*Supervisor, error) {
	if buffer < 1 {
		buffer = 1
	}
	if lockDir != "" {
		if err := os.MkdirAll(lockDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create lock directory: %w", err)
		}
	}
	return &Supervisor{
		lockDir: lockDir,
		events:  make(chan Event, buffer),
		running: make(map[string]*operation),
	}, nil
}

// Events returns the channel all operations report on.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// LockPath returns the lock file guarding kind.
func (s *Supervisor) LockPath(kind string) string {
	return filepath.Join(s.lockDir, kind+".lock")
}

// Start runs fn for kind and returns its operation ID. A second Start for a
// kind that is still running fails with a *BusyError.
func (s *Supervisor) Start(ctx context.Context, kind string, fn Func) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[kind]; ok {
		return "", &BusyError{Kind: kind}
	}

	var lock *flock.Flock
	if s.lockDir != "" {
		lock = flock.New(s.LockPath(kind))
		ok, err := lock.TryLock()
		if err != nil {
			return "", fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return "", &BusyError{Kind: kind, OtherProcess: true}
		}
	}

	opCtx, cancel := context.WithCancel(ctx)
	op := &operation{id: uuid.NewString(), cancel: cancel, lock: lock}
	s.running[kind] = op

	progress := func(p models.Progress) {
		select {
		case s.events <- ProgressEvent{OpID: op.id, Kind: kind, Done: p.Done, Total: p.Total, Current: p.Current}:
		default:
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		started := time.Now()
		result, err := fn(opCtx, progress)

		s.release(kind, op)
		s.events <- DoneEvent{OpID: op.id, Kind: kind, Result: result, Err: err, Elapsed: time.Since(started)}
	}()

	return op.id, nil
}

func (s *Supervisor) release(kind string, op *operation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op.cancel()
	if op.lock != nil {
		_ = op.lock.Unlock()
	}
	if s.running[kind] == op {
		delete(s.running, kind)
	}
}

// Cancel asks the running operation of kind to stop. It reports whether one was running.
func (s *Supervisor) Cancel(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.running[kind]
	if ok {
		op.cancel()
	}
	return ok
}

// Running reports whether an operation of kind is in progress.
func (s *Supervisor) Running(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[kind]
	return ok
}

// Wait blocks until every started operation has delivered its DoneEvent.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
