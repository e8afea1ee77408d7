// Package xlog provides the leveled, optionally colorized console logging
// used across the CLI and server components, adapted from the debug/info/
// success/warning/error convention the original tooling used.
package xlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
)

var (
	debugEnabled atomic.Bool
	colorEnabled atomic.Bool
	output       io.Writer = os.Stderr
)

func init() {
	colorEnabled.Store(true)
}

// SetDebug toggles whether Debug messages are emitted.
func SetDebug(enabled bool) { debugEnabled.Store(enabled) }

// SetColor toggles ANSI color codes in emitted messages.
func SetColor(enabled bool) { colorEnabled.Store(enabled) }

// SetOutput redirects where log lines are written. Tests use this to
// capture output instead of writing to stderr.
func SetOutput(w io.Writer) { output = w }

func style(c *color.Color, level, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] %s", level, msg)
	if !colorEnabled.Load() || c == nil {
		return line
	}
	return c.Sprint(line)
}

func emit(line string) {
	fmt.Fprintln(output, line)
}

// Debug logs a diagnostic message, only when debug mode is enabled.
func Debug(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	emit(style(color.New(color.FgHiBlack), "DEBUG", format, args...))
}

// Info logs a routine informational message.
func Info(format string, args ...any) {
	emit(style(nil, "INFO", format, args...))
}

// Success logs a notable positive event (server start, lease acquired, ...).
func Success(format string, args ...any) {
	emit(style(color.New(color.FgGreen), "INFO", format, args...))
}

// Warning logs a recoverable problem worth the operator's attention.
func Warning(format string, args ...any) {
	emit(style(color.New(color.FgYellow), "WARN", format, args...))
}

// Error logs a failure.
func Error(format string, args ...any) {
	emit(style(color.New(color.FgRed), "ERROR", format, args...))
}

// Exception logs err together with a short trace-style message. Unlike
// Python's traceback dump, Go errors carry their own wrapped context via
// %+v/errors.Unwrap, so this only adds the ERROR-level framing.
func Exception(err error) {
	Error("%v", err)
}

// StdLogger adapts xlog to the standard library's log.Logger interface, for
// handing to packages (net/http, grpc) that expect one.
func StdLogger(prefix string) *log.Logger {
	return log.New(stdLoggerWriter{}, prefix, 0)
}

type stdLoggerWriter struct{}

func (stdLoggerWriter) Write(p []byte) (int, error) {
	Info("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
