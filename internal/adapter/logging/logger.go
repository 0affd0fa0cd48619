// Package logging builds the process logger and a publisher that records
// ledger events as log lines.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation limits.
const (
	maxFileSizeMB  = 5
	maxFileBackups = 3
)

// Options configures New.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // optional rotating log file, written alongside stderr
}

// New builds a slog.Logger writing to stderr (and to Options.File when set).
// The returned close function releases the log file and is safe to call
// when no file was opened.
func New(stderr io.Writer, opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	w := stderr
	closeFn := func() error { return nil }
	if opts.File != "" {
		f, err := openFile(opts.File)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(stderr, f)
		closeFn = f.Close
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		_ = closeFn()
		return nil, nil, fmt.Errorf("unsupported log format: %q (use \"text\" or \"json\")", opts.Format)
	}

	return slog.New(handler).With("service", "idledger"), closeFn, nil
}

// openFile returns a size-rotated sink for path. The file is opened eagerly
// so a bad path fails at startup rather than on the first log line.
func openFile(path string) (*lumberjack.Logger, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("opening log file: %s is a directory", path)
	}
	f := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxFileSizeMB,
		MaxBackups: maxFileBackups,
	}
	if _, err := f.Write(nil); err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// ParseLevel maps a level name to a slog.Level. Empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported log level: %q", s)
	}
}
