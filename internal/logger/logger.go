// ABOUTME: Levelled logging for the chat client with verbosity control
// ABOUTME: Wraps the standard log package so call sites stay printf-style

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level orders log severities; messages below the current level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var (
	mu      sync.RWMutex
	level             = LevelInfo
	output  io.Writer = os.Stderr
	verbose           = false
)

// SetVerbose enables or disables DEBUG output. It is shorthand for
// SetLevel("debug") / SetLevel("info").
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level = LevelDebug
	} else if level == LevelDebug {
		level = LevelInfo
	}
}

// IsVerbose returns current verbose setting
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level by name (debug, info, warn, error).
// Unknown names fall back to info.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(name)
	verbose = level == LevelDebug
}

// CurrentLevel returns the active minimum level.
func CurrentLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// ParseLevel maps a config string onto a Level.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput sets the output destination for logs
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
	log.SetOutput(w)
}

// Output returns the current destination.
func Output() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}

func logf(l Level, format string, args ...interface{}) {
	mu.RLock()
	enabled := l >= level
	mu.RUnlock()
	if !enabled {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] %s", l, msg)
}

// Debug logs at DEBUG level (only shown when verbose)
func Debug(format string, args ...interface{}) {
	logf(LevelDebug, format, args...)
}

// Info logs at INFO level
func Info(format string, args ...interface{}) {
	logf(LevelInfo, format, args...)
}

// Warn logs at WARN level
func Warn(format string, args ...interface{}) {
	logf(LevelWarn, format, args...)
}

// Error logs at ERROR level (always shown)
func Error(format string, args ...interface{}) {
	logf(LevelError, format, args...)
}
