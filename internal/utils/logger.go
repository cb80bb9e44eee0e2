package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Logger provides leveled logging. Debug output is dropped unless enabled.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	color     bool
	debugOn   bool
	timestamp func() string
}

// NewLogger creates a Logger writing info and debug to stdout, warnings and
// errors to stderr.
func NewLogger(debug bool) *Logger {
	return NewLoggerTo(os.Stdout, os.Stderr, debug, true)
}

// NewLoggerTo creates a Logger over the given writers.
func NewLoggerTo(out, errOut io.Writer, debug, color bool) *Logger {
	return &Logger{
		info:    log.New(out, "", 0),
		warn:    log.New(errOut, "", 0),
		err:     log.New(errOut, "", 0),
		debug:   log.New(out, "", 0),
		color:   color,
		debugOn: debug,
		timestamp: func() string {
			return time.Now().Format("2006-01-02 15:04:05")
		},
	}
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, io.Discard, false, false)
}

// SetDebug toggles debug output.
func (l *Logger) SetDebug(on bool) { l.debugOn = on }

func (l *Logger) line(level, ansi, format string) string {
	if l.color {
		level = ansi + level + "\033[0m"
	}
	return fmt.Sprintf("[%s] %s %s\n", l.timestamp(), level, format)
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(l.line("INFO ", "\033[32m", format), args...)
}

// Warn logs at WARN level to the error writer.
func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(l.line("WARN ", "\033[33m", format), args...)
}

// Error logs at ERROR level to the error writer.
func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(l.line("ERROR", "\033[31m", format), args...)
}

// Debug logs at DEBUG level when debug output is enabled.
func (l *Logger) Debug(format string, args ...any) {
	if !l.debugOn {
		return
	}
	l.debug.Printf(l.line("DEBUG", "\033[36m", format), args...)
}
