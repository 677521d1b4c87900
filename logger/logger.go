package logger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/hkogrunt/grunt/logger/contracts"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the severity written between brackets on every log line.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelSystem  Level = "SYSTEM"
)

// FileName is the name of the active log file inside the logs directory.
const FileName = "grunt_log.txt"

// TimeLayout is the timestamp format of every line.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultMaxSizeMB is the rotation threshold used when none is configured.
const DefaultMaxSizeMB = 10

const megabyte = 1024 * 1024

// Logger writes "[timestamp] [LEVEL] message" lines to an append-only file and
// mirrors them to the console. It is safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	file     *lumberjack.Logger
	console  io.Writer
	minEcho  Level
	now      func() time.Time
	maxBytes int64
}

var _ contracts.ILogger = (*Logger)(nil)

// Options configures New.
type Options struct {
	Dir       string
	MaxSizeMB int
	// Console receives a colored copy of each line; nil disables echoing.
	Console io.Writer
	// Quiet limits console echo to warnings and errors.
	Quiet bool
}

// New opens (creating if needed) the log file in opts.Dir.
func New(opts Options) (*Logger, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = DefaultMaxSizeMB
	}

	l := &Logger{
		file: &lumberjack.Logger{
			Filename:  filepath.Join(opts.Dir, FileName),
			MaxSize:   maxSize,
			LocalTime: true,
		},
		console:  opts.Console,
		minEcho:  LevelInfo,
		now:      time.Now,
		maxBytes: int64(maxSize) * megabyte,
	}
	if opts.Quiet {
		l.minEcho = LevelWarning
	}

	// A log location that cannot be opened is a startup error.
	if _, err := l.file.Write(nil); err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return l, nil
}

// Path returns the active log file.
func (l *Logger) Path() string {
	return l.file.Filename
}

func (l *Logger) Info(format string, args ...any)    { l.log(LevelInfo, format, args...) }
func (l *Logger) Warning(format string, args ...any) { l.log(LevelWarning, format, args...) }
func (l *Logger) Error(format string, args ...any)   { l.log(LevelError, format, args...) }
func (l *Logger) System(format string, args ...any)  { l.log(LevelSystem, format, args...) }

// Rotate renames the current file with a timestamp suffix and starts a new one.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	err := l.file.Rotate()
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to rotate log: %w", err)
	}
	l.System("Log rotated")
	return nil
}

// RotateIfNeeded rotates only when the active file has reached the size
// threshold. It reports whether a rotation happened.
func (l *Logger) RotateIfNeeded() (bool, error) {
	l.mu.Lock()
	info, err := os.Stat(l.file.Filename)
	l.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check log size: %w", err)
	}
	if info.Size() < l.maxBytes {
		return false, nil
	}
	return true, l.Rotate()
}

// Size returns the size of the active log file and the rotation threshold.
func (l *Logger) Size() (int64, int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, err := os.Stat(l.file.Filename)
	if err != nil {
		return 0, l.maxBytes
	}
	return info.Size(), l.maxBytes
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// FormatLine renders one log line without the trailing newline.
func FormatLine(ts time.Time, level Level, msg string) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	return fmt.Sprintf("[%s] [%s] %s", ts.Format(TimeLayout), level, msg)
}

func (l *Logger) log(level Level, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	line := FormatLine(l.now(), level, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := io.WriteString(l.file, line+"\n"); err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
	}
	if l.console != nil && l.echoes(level) {
		fmt.Fprintln(l.console, colorize(level, line))
	}
}

func (l *Logger) echoes(level Level) bool {
	if l.minEcho == LevelInfo {
		return true
	}
	return level == LevelWarning || level == LevelError
}

func colorize(level Level, line string) string {
	switch level {
	case LevelWarning:
		return lipgloss.Yellow.Render(line)
	case LevelError:
		return lipgloss.Red.Render(line)
	case LevelSystem:
		return lipgloss.Magenta.Render(line)
	default:
		return lipgloss.Gray.Render(line)
	}
}

type nop struct{}

func (nop) Info(string, ...any)    {}
func (nop) Warning(string, ...any) {}
func (nop) Error(string, ...any)   {}
func (nop) System(string, ...any)  {}

// Nop returns a logger that discards everything.
func Nop() contracts.ILogger { return nop{} }

// Recorder keeps log lines in memory. Tests use it to assert on warnings.
type Recorder struct {
	mu    sync.Mutex
	Lines []string
}

var _ contracts.ILogger = (*Recorder)(nil)

func (r *Recorder) record(level Level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	r.Lines = append(r.Lines, fmt.Sprintf("[%s] %s", level, msg))
}

func (r *Recorder) Info(format string, args ...any)    { r.record(LevelInfo, format, args...) }
func (r *Recorder) Warning(format string, args ...any) { r.record(LevelWarning, format, args...) }
func (r *Recorder) Error(format string, args ...any)   { r.record(LevelError, format, args...) }
func (r *Recorder) System(format string, args ...any)  { r.record(LevelSystem, format, args...) }

// Count returns how many recorded lines carry level.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := "[" + string(level) + "]"
	n := 0
	for _, line := range r.Lines {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}
