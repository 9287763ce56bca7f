package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// RunKey is the attribute carrying the id of the current pipeline run
const RunKey = "run"

// LevelTrace sits below debug and is only enabled with -vv
const LevelTrace = slog.LevelDebug - 4

// logger is swapped atomically so that watch mode can retag runs while the
// watcher goroutines keep logging. mu serializes the settings behind it.
var (
	logger atomic.Pointer[slog.Logger]

	mu     sync.Mutex
	output io.Writer = os.Stdout
	asJSON bool
	level  slog.Level = slog.LevelInfo
	runID  string
)

func init() {
	mu.Lock()
	defer mu.Unlock()
	rebuild()
}

// rebuild recreates the logger from the current settings. Callers hold mu.
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	w := lockedWriter{output}
	if asJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		// Compact handler for readable console output
		handler = NewCompactHandler(w, opts)
	}

	l := slog.New(handler)
	if runID != "" {
		l = l.With(RunKey, runID)
	}
	logger.Store(l)
}

// writeMu serializes writes across logger generations: a line from a handler
// replaced by rebuild may still be in flight.
var writeMu sync.Mutex

type lockedWriter struct {
	w io.Writer
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	writeMu.Lock()
	defer writeMu.Unlock()
	return lw.w.Write(p)
}

// Logger returns the current logger
func Logger() *slog.Logger {
	return logger.Load()
}

// SetLevel changes the logging level
func SetLevel(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	rebuild()
}

// SetJSONOutput switches to JSON format output
func SetJSONOutput(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	asJSON = true
	level = l
	rebuild()
}

// SetOutput redirects log output. Nil restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// SetRunID tags every following log line with the run id. Empty clears it.
func SetRunID(id string) {
	mu.Lock()
	defer mu.Unlock()
	runID = id
	rebuild()
}

// ParseLevel resolves --verbosity and the -v count into a level.
// An explicit verbosity name wins over the count.
func ParseLevel(verbosity string, verboseCount int) (slog.Level, error) {
	switch strings.ToLower(verbosity) {
	case "":
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown verbosity %q", verbosity)
	}

	switch {
	case verboseCount >= 2:
		return LevelTrace, nil
	case verboseCount == 1:
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, nil
	}
}

// Trace logs at TRACE level (very verbose, debug-time only)
func Trace(msg string, args ...any) {
	Logger().Log(context.Background(), LevelTrace, msg, args...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs at WARN level (skipped input, halted stages)
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at ERROR level (inputs that could not be read)
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Fatal logs at ERROR level and exits
func Fatal(msg string, args ...any) {
	Logger().Error(msg, args...)
	os.Exit(1)
}
