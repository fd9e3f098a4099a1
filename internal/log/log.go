// Package log provides structured logging for go-jarvis.
// It wraps slog with sensible defaults for production use.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
)

// Options configures the global logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Empty means info.
	Level string `yaml:"level" json:"level"`

	// Format is "text" or "json". Empty picks JSON when GO_ENV=production.
	Format string `yaml:"format" json:"format"`

	// File, when set, receives a copy of every record and is rotated by size.
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// DefaultOptions logs text at info level to stdout.
func DefaultOptions() Options {
	return Options{
		Level:      "info",
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 14,
	}
}

// Validate checks level and format.
func (o Options) Validate() error {
	if _, err := ParseLevel(o.Level); err != nil {
		return err
	}
	switch strings.ToLower(o.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", o.Format)
	}
	if o.File != "" && o.MaxSizeMB <= 0 {
		return fmt.Errorf("log max_size_mb must be positive, got %d", o.MaxSizeMB)
	}
	return nil
}

var (
	mu     sync.Mutex
	logger *slog.Logger
	rotate *lumberjack.Logger
)

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	opts := DefaultOptions()
	opts.Level = level
	_ = Setup(opts)
}

// Setup replaces the global logger and slog's default. A previously opened
// log file is closed.
func Setup(opts Options) error {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	var file *lumberjack.Logger
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			LocalTime:  true,
		}
		w = io.MultiWriter(os.Stdout, file)
	}

	l := slog.New(newHandler(w, opts.Format, lvl))

	mu.Lock()
	old := rotate
	logger, rotate = l, file
	mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	slog.SetDefault(l)
	return nil
}

func newHandler(w io.Writer, format string, lvl slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: lvl}

	json := strings.EqualFold(format, "json")
	if format == "" {
		// Use JSON in production, text in development
		json = os.Getenv("GO_ENV") == "production"
	}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	f := rotate
	rotate = nil
	mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

// L returns the global logger instance.
func L() *slog.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		Init("info")
		mu.Lock()
		l = logger
		mu.Unlock()
	}
	return l
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
