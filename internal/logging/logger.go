package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
)

// Level names accepted by the logger and written to each entry.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// FileName is the name of the debug log inside the configured log directory.
const FileName = "hunt.log"

// Attribute keys attached by the With* helpers. The logs command filters on them.
const (
	KeyHunt     = "hunt_id"
	KeyRevision = "revision"
	KeyPhase    = "phase"
)

var levels = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// sink is the output shared by a root logger and all of its children.
type sink struct {
	mu     sync.Mutex
	file   *RotatingWriter
	closed bool
}

// Logger writes JSON lines through log/slog. Children created with With,
// WithHunt, WithRevision or WithPhase share the parent's output, so closing
// any of them closes the file for all. It is safe for concurrent use.
type Logger struct {
	slog *slog.Logger
	out  *sink
}

// NewLogger opens {dir}/hunt.log with DefaultRotationConfig. An empty dir
// logs to stderr instead. Unknown level names fall back to INFO.
func NewLogger(dir string, level string) (*Logger, error) {
	return NewLoggerWithRotation(dir, level, DefaultRotationConfig())
}

// NewLoggerWithRotation is NewLogger with an explicit rotation policy.
func NewLoggerWithRotation(dir string, level string, config RotationConfig) (*Logger, error) {
	if dir == "" {
		return build(os.Stderr, nil, level), nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rw, err := NewRotatingWriter(filepath.Join(dir, FileName), config)
	if err != nil {
		return nil, err
	}
	return build(rw, rw, level), nil
}

// NewWriterLogger creates a Logger writing JSON lines to w. Closing it does
// not close w.
func NewWriterLogger(w io.Writer, level string) *Logger {
	return build(w, nil, level)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() *Logger {
	return build(io.Discard, nil, LevelError)
}

func build(w io.Writer, file *RotatingWriter, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levels[ParseLevel(level)]})
	return &Logger{slog: slog.New(handler), out: &sink{file: file}}
}

// WithHunt tags every entry with the hunt ID.
func (l *Logger) WithHunt(huntID string) *Logger {
	return l.With(KeyHunt, huntID)
}

// WithRevision tags every entry with the revision being probed.
func (l *Logger) WithRevision(rev string) *Logger {
	return l.With(KeyRevision, rev)
}

// WithPhase tags every entry with the hunt phase: capture, search, confirm or restore.
func (l *Logger) WithPhase(phase string) *Logger {
	return l.With(KeyPhase, phase)
}

// With returns a child logger carrying the given key-value pairs.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{slog: l.slog.With(args...), out: l.out}
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at INFO level.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at ERROR level.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Failure logs err at the level its severity maps to, with the error text,
// the severity name and whether the failure was transient.
func (l *Logger) Failure(msg string, err error, args ...any) {
	if err == nil {
		l.Info(msg, args...)
		return
	}
	sev := errors.GetSeverity(err)
	args = append(args,
		"error", err.Error(),
		"severity", sev.String(),
	)
	if errors.IsRetryable(err) {
		args = append(args, "retryable", true)
	}
	l.slog.Log(context.Background(), SeverityLevel(sev), msg, args...)
}

// SeverityLevel maps an error severity onto a log level.
func SeverityLevel(sev errors.Severity) slog.Level {
	switch sev {
	case errors.SeverityDebug:
		return slog.LevelDebug
	case errors.SeverityInfo:
		return slog.LevelInfo
	case errors.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Path returns the log file path, or "" when logging to stderr or a caller-supplied writer.
func (l *Logger) Path() string {
	if l.out.file == nil {
		return ""
	}
	return l.out.file.FilePath()
}

// Close closes the log file once. Later calls, and loggers without a file,
// return nil.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.file == nil || l.out.closed {
		return nil
	}
	l.out.closed = true
	return l.out.file.Close()
}

// ParseLevel normalizes a level name. Unknown names map to LevelInfo.
func ParseLevel(level string) string {
	upper := strings.ToUpper(strings.TrimSpace(level))
	if _, ok := levels[upper]; ok {
		return upper
	}
	return LevelInfo
}

// ValidLevels returns the accepted level names from most to least verbose.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
