// Package observability provides the structured leveled logger used across
// the CLI and its internal packages (SPEC_FULL.md ambient stack).
package observability

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String names the level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a small structured logger writing one line per entry to an
// io.Writer, carrying a set of key/value fields attached via WithField(s).
type Logger struct {
	level  Level
	output io.Writer
	fields map[string]interface{}
}

// New creates a logger at the given minimum level writing to output. A nil
// output defaults to stderr, since stdout is reserved for piped table
// output in some invocations (e.g. the CSV writer via "-").
func New(level Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return &Logger{level: level, output: output, fields: map[string]interface{}{}}
}

// NewDefault creates an INFO-level logger writing to stderr.
func NewDefault() *Logger {
	return New(INFO, os.Stderr)
}

// WithFields returns a new logger carrying the union of l's fields and the
// given ones (the given fields take precedence on conflict).
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{level: l.level, output: l.output, fields: merged}
}

// WithField is WithFields for a single key.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// SetLevel changes the minimum level that will be emitted.
func (l *Logger) SetLevel(level Level) { l.level = level }

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) { l.log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...map[string]interface{})  { l.log(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...map[string]interface{})  { l.log(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...map[string]interface{}) { l.log(ERROR, msg, fields...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})  { l.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.Error(fmt.Sprintf(format, args...)) }

func (l *Logger) log(level Level, msg string, extra ...map[string]interface{}) {
	if level < l.level {
		return
	}
	all := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		all[k] = v
	}
	for _, fields := range extra {
		for k, v := range fields {
			all[k] = v
		}
	}

	entry := fmt.Sprintf("[%s] %s: %s", time.Now().Format(time.RFC3339), level, msg)
	for k, v := range all {
		entry += fmt.Sprintf(" %s=%v", k, v)
	}
	entry += "\n"
	l.output.Write([]byte(entry))
}

// Stage logs the start and completion (or failure) of a named pipeline
// stage — e.g. "read input.ply", "quantize SH", "write output.sog" — along
// with its wall-clock duration.
func (l *Logger) Stage(name string, fn func() error) error {
	start := time.Now()
	l.Debugf("starting %s", name)
	err := fn()
	duration := time.Since(start)
	if err != nil {
		l.Error("stage failed", map[string]interface{}{"stage": name, "duration": duration, "error": err.Error()})
		return err
	}
	l.Info("stage complete", map[string]interface{}{"stage": name, "duration": duration})
	return nil
}

// ParseLevel parses a level name, defaulting to INFO on an unrecognized
// string.
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG", "debug":
		return DEBUG
	case "INFO", "info":
		return INFO
	case "WARN", "warn", "WARNING", "warning":
		return WARN
	case "ERROR", "error":
		return ERROR
	default:
		return INFO
	}
}
