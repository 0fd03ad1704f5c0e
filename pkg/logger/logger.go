package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity level of log messages.
type LogLevel int

// Log level constants defining message severity.
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logrusLevels = map[LogLevel]logrus.Level{
	DEBUG: logrus.DebugLevel,
	INFO:  logrus.InfoLevel,
	WARN:  logrus.WarnLevel,
	ERROR: logrus.ErrorLevel,
	FATAL: logrus.FatalLevel,
}

// ParseLogLevel converts a string log level to its LogLevel constant.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Fields carries structured context attached to every line written through an Entry.
type Fields map[string]interface{}

// Logger provides leveled logging with log rotation on top of logrus.
type Logger struct {
	base  *logrus.Logger
	level LogLevel
	mu    sync.RWMutex
}

var instance *Logger
var once sync.Once

// discard backs entries created before Init so callers never need a nil check.
var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Init initializes the global logger instance with default configuration at INFO level.
func Init(logPath string) {
	once.Do(func() {
		instance = NewLogger(logPath, INFO)
	})
}

// InitWithConfig initializes the global logger instance with custom log rotation configuration.
func InitWithConfig(logPath string, level LogLevel, maxSize, maxBackups, maxAge int, compress bool) {
	once.Do(func() {
		instance = NewLoggerWithConfig(logPath, level, maxSize, maxBackups, maxAge, compress)
	})
}

// NewLogger creates a new logger instance with default log rotation settings.
func NewLogger(logPath string, level LogLevel) *Logger {
	return NewLoggerWithConfig(logPath, level, 10, 3, 28, true)
}

// NewLoggerWithConfig creates a new logger instance with custom log rotation configuration.
func NewLoggerWithConfig(logPath string, level LogLevel, maxSize, maxBackups, maxAge int, compress bool) *Logger {
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("cannot create directory log: %v", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   compress,
	}

	return NewWithWriter(io.MultiWriter(os.Stdout, logFile), level)
}

// NewWithWriter creates a logger writing to w. Used by tests and by NewLoggerWithConfig.
func NewWithWriter(w io.Writer, level LogLevel) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	base.SetLevel(logrusLevels[level])
	return &Logger{base: base, level: level}
}

// SetLevel changes the minimum log level for filtering messages.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.base.SetLevel(logrusLevels[level])
}

// GetLevel returns the current minimum log level.
func (l *Logger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// WithFields returns an Entry carrying the given fields.
func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{e: l.base.WithFields(logrus.Fields(fields))}
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.base.Debugf(format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { l.base.Infof(format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.base.Warnf(format, v...) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.base.Errorf(format, v...) }
func (l *Logger) Fatalf(format string, v ...interface{}) { l.base.Fatalf(format, v...) }

// Entry is a logger bound to a set of structured fields. It is what gets injected
// into a single operation so every line it writes is attributable to that operation.
type Entry struct {
	e *logrus.Entry
}

// WithField returns a copy of the entry with one more field.
func (en *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{e: en.e.WithField(key, value)}
}

// WithError returns a copy of the entry carrying err under the "error" field.
func (en *Entry) WithError(err error) *Entry {
	return &Entry{e: en.e.WithError(err)}
}

// Data exposes the fields bound to this entry.
func (en *Entry) Data() Fields {
	return Fields(en.e.Data)
}

func (en *Entry) Debugf(format string, v ...interface{}) { en.e.Debugf(format, v...) }
func (en *Entry) Infof(format string, v ...interface{})  { en.e.Infof(format, v...) }
func (en *Entry) Warnf(format string, v ...interface{})  { en.e.Warnf(format, v...) }
func (en *Entry) Errorf(format string, v ...interface{}) { en.e.Errorf(format, v...) }

// Global convenience functions

func base() *logrus.Logger {
	if instance != nil {
		return instance.base
	}
	return discard
}

// WithFields returns an Entry from the global logger. Before Init the entry discards output.
func WithFields(fields Fields) *Entry {
	return &Entry{e: base().WithFields(logrus.Fields(fields))}
}

// Debug logs a debug-level message using the global logger instance.
func Debug(v ...interface{}) {
	if instance != nil {
		instance.base.Debug(v...)
	}
}

// Debugf logs a formatted debug-level message using the global logger instance.
func Debugf(format string, v ...interface{}) {
	if instance != nil {
		instance.Debugf(format, v...)
	}
}

// Info logs an info-level message using the global logger instance.
func Info(v ...interface{}) {
	if instance != nil {
		instance.base.Info(v...)
	}
}

// Infof logs a formatted info-level message using the global logger instance.
func Infof(format string, v ...interface{}) {
	if instance != nil {
		instance.Infof(format, v...)
	}
}

// Warnf logs a formatted warning-level message using the global logger instance.
func Warnf(format string, v ...interface{}) {
	if instance != nil {
		instance.Warnf(format, v...)
	}
}

// Error logs an error-level message using the global logger instance.
func Error(v ...interface{}) {
	if instance != nil {
		instance.base.Error(v...)
	}
}

// Errorf logs a formatted error-level message using the global logger instance.
func Errorf(format string, v ...interface{}) {
	if instance != nil {
		instance.Errorf(format, v...)
	}
}

// Fatalf logs a formatted fatal-level message and exits the program using the global logger instance.
func Fatalf(format string, v ...interface{}) {
	if instance != nil {
		instance.Fatalf(format, v...)
	}
}

// SetLevel changes the minimum log level for the global logger instance.
func SetLevel(level LogLevel) {
	if instance != nil {
		instance.SetLevel(level)
	}
}

// GetLevel returns the current minimum log level of the global logger instance.
func GetLevel() LogLevel {
	if instance != nil {
		return instance.GetLevel()
	}
	return INFO
}
