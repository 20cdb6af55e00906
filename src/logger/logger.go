package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// -----------------------------------------------------------------------------

// Log levels, ordered by severity
const (
	LevelDebug = iota
	LevelInfo
	LevelWarning
	LevelError
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	level  int
	logger *log.Logger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing to stdout
func NewLogger(level string, name string) *Logger {
	return NewLoggerWithWriter(os.Stdout, level, name)
}

// -----------------------------------------------------------------------------

// NewLoggerWithWriter creates a Logger on an arbitrary writer (tests use a buffer)
func NewLoggerWithWriter(w io.Writer, level string, name string) *Logger {
	return &Logger{
		name:   name,
		level:  ParseLevel(level),
		logger: log.New(w, "", log.LstdFlags),
	}
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing output and level under another name
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:   name,
		level:  l.level,
		logger: l.logger,
	}
}

// -----------------------------------------------------------------------------

// ParseLevel converts DEBUG|INFO|WARNING|ERROR to a level. Unknown -> INFO.
func ParseLevel(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarning
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.write(LevelWarning, "WARNING", format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "INFO", format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "ERROR", format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] CRITICAL: %s", l.name, msg)
	os.Exit(1)
}

// -----------------------------------------------------------------------------

func (l *Logger) write(level int, tag string, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] %s: %s", l.name, tag, msg)
}
