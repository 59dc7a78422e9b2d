// Package logging configures zap loggers for tutoring sessions.
// Each session writes structured JSON to a log file under the session
// directory while mirroring human-readable output to the console.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Dir is the session directory receiving the log file.
	// Empty disables the file sink.
	Dir string

	// Debug lowers the level from Info to Debug.
	Debug bool

	// Quiet suppresses the console sink. The file sink, if any,
	// still receives everything.
	Quiet bool
}

// New builds a session logger. The returned cleanup closes the log
// file and flushes buffered entries; it is safe to call more than once.
func New(opts Options) (*zap.Logger, func(), error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	var cores []zapcore.Core
	var file *os.File

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		path := filepath.Join(opts.Dir, "session.log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(f),
			level,
		))
	}

	if !opts.Quiet {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			level,
		))
	}

	var log *zap.Logger
	if len(cores) == 0 {
		log = zap.NewNop()
	} else {
		log = zap.New(zapcore.NewTee(cores...))
	}

	closed := false
	cleanup := func() {
		if closed {
			return
		}
		closed = true
		_ = log.Sync()
		if file != nil {
			_ = file.Close()
		}
	}

	return log, cleanup, nil
}

// NopIfNil returns a no-op logger when log is nil. Components take a
// logger without having to nil-check at every call site.
func NopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
