// Package logging configures the structured application log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log sink, level and format.
type Options struct {
	// File is the log file path. Empty logs to Stderr.
	File string
	// Level is debug, info, warn or error.
	Level string
	// Format is json or text.
	Format string
	// MaxSizeMB rotates the file after this many megabytes.
	MaxSizeMB  int
	MaxBackups int
	// Stderr replaces os.Stderr when File is empty.
	Stderr io.Writer
}

// Runtime bundles the configured logger and its file handle lifecycle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	level  *slog.LevelVar
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// SetLevel changes the level of a running logger.
func (r Runtime) SetLevel(level string) error {
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	r.level.Set(l)
	return nil
}

// Level returns the current level.
func (r Runtime) Level() slog.Level {
	return r.level.Level()
}

// New builds a logger from opts. Files are rotated by lumberjack.
func New(opts Options) (Runtime, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return Runtime{}, err
	}
	lv := new(slog.LevelVar)
	lv.Set(level)

	rt := Runtime{level: lv}
	var w io.Writer = os.Stderr
	if opts.Stderr != nil {
		w = opts.Stderr
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return Runtime{}, err
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			Compress:   true,
		}
		w = rotator
		rt.Path = opts.File
		rt.closer = rotator
	}

	handlerOpts := &slog.HandlerOptions{Level: lv}
	switch strings.ToLower(opts.Format) {
	case "", "json":
		rt.Logger = slog.New(slog.NewJSONHandler(w, handlerOpts))
	case "text":
		rt.Logger = slog.New(slog.NewTextHandler(w, handlerOpts))
	default:
		return Runtime{}, fmt.Errorf("unknown log format %q (want json or text)", opts.Format)
	}
	return rt, nil
}

// ParseLevel parses a level name. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
