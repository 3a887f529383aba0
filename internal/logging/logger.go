package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Level represents log severity levels.
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

// ParseLevel maps a case-insensitive level name to a Level. Unknown names
// resolve to LevelInfo.
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

// Fields is a set of structured key/value pairs attached to an entry.
type Fields map[string]interface{}

// Entry is one JSON log line.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
}

// Logger writes structured JSON lines. Child loggers created with WithField
// share the parent's writer and lock.
type Logger struct {
	mu     *sync.Mutex
	output io.Writer
	level  Level
	fields Fields
	now    func() time.Time
}

// New creates a logger writing INFO and above to stdout.
func New() *Logger {
	return &Logger{
		mu:     &sync.Mutex{},
		output: os.Stdout,
		level:  LevelInfo,
		fields: Fields{},
		now:    time.Now,
	}
}

func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	return l
}

func (l *Logger) SetLevel(level Level) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	return l
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

func (l *Logger) WithFields(fields Fields) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		mu:     l.mu,
		output: l.output,
		level:  l.level,
		fields: merged,
		now:    l.now,
	}
}

// WithError attaches err under the "error" key. A nil error is a no-op.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(LevelDebug, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(LevelInfo, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(LevelWarn, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(LevelError, msg, fields...)
}

func (l *Logger) log(level Level, msg string, extra ...Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := Entry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
	}

	size := len(l.fields)
	for _, f := range extra {
		size += len(f)
	}
	if size > 0 {
		entry.Fields = make(Fields, size)
		for k, v := range l.fields {
			entry.Fields[k] = v
		}
		for _, f := range extra {
			for k, v := range f {
				if e, ok := v.(error); ok {
					v = e.Error()
				}
				entry.Fields[k] = v
			}
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		_, _ = io.WriteString(l.output, entry.Timestamp+" "+entry.Level+" "+msg+"\n")
		return
	}
	data = append(data, '\n')
	_, _ = l.output.Write(data)
}

// Default is the process-wide logger used by the package-level helpers.
var Default = New()

func SetDefaultLevel(level Level) {
	Default.SetLevel(level)
}

func Debug(msg string, fields ...Fields) {
	Default.Debug(msg, fields...)
}

func Info(msg string, fields ...Fields) {
	Default.Info(msg, fields...)
}

func Warn(msg string, fields ...Fields) {
	Default.Warn(msg, fields...)
}

func Error(msg string, fields ...Fields) {
	Default.Error(msg, fields...)
}
