// Package logger provides leveled logging for the permit-assets CLI.
// Debug, Info, Warn and Section output is printed to stderr only when
// verbose mode is enabled via the --verbose flag. Error output is always
// printed. The package holds output settings only, never run state.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func write(always bool, level, scope, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !always && !verbose {
		return
	}
	if scope != "" {
		fmt.Fprintf(output, "[%s] [%s] %s\n", level, scope, fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", level, fmt.Sprintf(format, args...))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write(false, "DEBUG", "", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write(false, "INFO", "", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	write(false, "WARN", "", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	write(true, "ERROR", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Scoped prefixes every message with a scope such as a pipeline step.
type Scoped struct {
	scope string
}

// For returns a logger that tags messages with scope.
func For(scope string) Scoped {
	return Scoped{scope: scope}
}

// Debug prints a scoped message if verbose mode is enabled.
func (s Scoped) Debug(format string, args ...any) {
	write(false, "DEBUG", s.scope, format, args...)
}

// Info prints a scoped message if verbose mode is enabled.
func (s Scoped) Info(format string, args ...any) {
	write(false, "INFO", s.scope, format, args...)
}

// Warn prints a scoped warning if verbose mode is enabled.
func (s Scoped) Warn(format string, args ...any) {
	write(false, "WARN", s.scope, format, args...)
}

// Error prints a scoped error regardless of verbose mode.
func (s Scoped) Error(format string, args ...any) {
	write(true, "ERROR", s.scope, format, args...)
}
