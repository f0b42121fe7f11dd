// Package logging provides the leveled logfmt logger used across the
// daemon, engine, and UI log files.
package logging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a config string onto a level, defaulting to Info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// NewRequestID returns a short hex id for correlating the log lines of one
// request. Falls back to a nanosecond stamp if the random source fails.
func NewRequestID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf[:])
}

type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
}

// New returns a logger writing one logfmt line per call. The writer is
// guarded by a mutex shared with With children, so lines never interleave.
func New(out io.Writer, level Level) Logger {
	if out == nil {
		out = os.Stdout
	}
	return &textLogger{out: out, level: level, mu: &sync.Mutex{}}
}

// Nop returns a logger that drops everything.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (n nopLogger) With(...Field) Logger { return n }
func (nopLogger) Enabled(Level) bool     { return false }

type textLogger struct {
	out    io.Writer
	level  Level
	fields []Field
	mu     *sync.Mutex
}

func (l *textLogger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return level >= l.level
}

func (l *textLogger) With(fields ...Field) Logger {
	if l == nil {
		return Nop()
	}
	bound := make([]Field, 0, len(l.fields)+len(fields))
	bound = append(bound, l.fields...)
	bound = append(bound, fields...)
	return &textLogger{out: l.out, level: l.level, fields: bound, mu: l.mu}
}

func (l *textLogger) Debug(msg string, fields ...Field) { l.emit(Debug, msg, fields) }
func (l *textLogger) Info(msg string, fields ...Field)  { l.emit(Info, msg, fields) }
func (l *textLogger) Warn(msg string, fields ...Field)  { l.emit(Warn, msg, fields) }
func (l *textLogger) Error(msg string, fields ...Field) { l.emit(Error, msg, fields) }

func (l *textLogger) emit(level Level, msg string, fields []Field) {
	if l == nil || level < l.level {
		return
	}

	var line strings.Builder
	line.WriteString("ts=")
	line.WriteString(time.Now().UTC().Format(time.RFC3339Nano))
	line.WriteString(" level=")
	line.WriteString(level.String())
	line.WriteString(" msg=")
	line.WriteString(formatValue(msg))
	for _, field := range l.fields {
		writeField(&line, field)
	}
	for _, field := range fields {
		writeField(&line, field)
	}
	line.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, line.String())
}

func writeField(line *strings.Builder, field Field) {
	line.WriteByte(' ')
	line.WriteString(field.Key)
	line.WriteByte('=')
	line.WriteString(formatValue(field.Value))
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quoteIfNeeded(v)
	case []byte:
		return quoteIfNeeded(string(v))
	case bool:
		return strconv.FormatBool(v)
	case error:
		return quoteIfNeeded(v.Error())
	case fmt.Stringer:
		return quoteIfNeeded(v.String())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		return quoteIfNeeded(fmt.Sprintf("%v", v))
	}
}

func quoteIfNeeded(value string) string {
	if value == "" {
		return `""`
	}
	if strings.ContainsAny(value, " \t\n\r\"=") {
		return strconv.Quote(value)
	}
	return value
}
