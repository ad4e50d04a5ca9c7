// Package logger is the engine's leveled stderr logger. The default
// threshold lets only errors through; the --verbose flag lowers it to
// debug so operators can follow the serving and rebuild pipelines.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level orders log severities from chattiest to most urgent.
type Level int8

// Severity levels.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

var (
	mu        sync.RWMutex
	threshold           = LevelError
	output    io.Writer = os.Stderr
)

// SetLevel sets the minimum severity that gets written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	threshold = l
}

// SetVerbose lowers the threshold to debug, or restores the
// errors-only default.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelError)
	}
}

// IsVerbose reports whether debug messages are being written.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return threshold <= LevelDebug
}

// SetOutput redirects log output, os.Stderr by default.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(l Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l < threshold {
		return
	}
	fmt.Fprintf(output, "%-5s| %s\n", l, fmt.Sprintf(format, args...))
}

// Debug logs pipeline detail.
func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

// Info logs progress messages.
func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warn logs recoverable problems.
func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Error logs failures. The default threshold never filters them.
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// Section marks the start of a long operation, such as an index
// rebuild, at info severity.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if LevelInfo < threshold {
		return
	}
	fmt.Fprintf(output, "\n# %s\n", name)
}
