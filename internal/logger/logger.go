package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName = "forge-reflect.log"
	maxSizeMB   = 1
	maxAgeDays  = 14
	maxBackups  = 10
)

// Level represents the log level.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

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

// ParseLevel maps a config level name to a Level. Unknown names yield INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger writes leveled lines to a rotated file. Warnings and errors are
// echoed to stderr so a hook's caller sees them; stdout is never touched.
type Logger struct {
	mu      sync.Mutex
	file    io.WriteCloser
	stderr  io.Writer
	logPath string
	level   Level
	prefix  string
}

var (
	mu       sync.Mutex
	instance *Logger
)

// Init opens the rotated log file in dir and makes it the package logger.
// component tags every line, e.g. "insight" or "reflect".
func Init(dir string, level Level, component string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	logPath := filepath.Join(dir, logFileName)
	l := &Logger{
		file: &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    maxSizeMB,
			MaxAge:     maxAgeDays,
			MaxBackups: maxBackups,
			Compress:   true,
			LocalTime:  true,
		},
		stderr:  os.Stderr,
		logPath: logPath,
		level:   level,
		prefix:  component,
	}

	mu.Lock()
	old := instance
	instance = l
	mu.Unlock()
	if old != nil && old.file != nil {
		old.file.Close()
	}
	return nil
}

// Get returns the package logger. Before Init it logs to stderr only.
func Get() *Logger {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = &Logger{stderr: os.Stderr, level: WARN}
	}
	return instance
}

// Close closes the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil && instance.file != nil {
		err := instance.file.Close()
		instance = nil
		return err
	}
	return nil
}

// LogPath returns the path to the log file, or "" when logging to stderr only.
func (l *Logger) LogPath() string {
	return l.logPath
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	message := fmt.Sprintf(format, args...)
	tag := "forge-reflect"
	if l.prefix != "" {
		tag += "[" + l.prefix + "]"
	}

	if l.file != nil {
		ts := time.Now().Format("2006-01-02 15:04:05")
		fmt.Fprintf(l.file, "[%s] %s %s: %s\n", ts, level, tag, message)
	}
	if l.stderr != nil && (level >= WARN || l.file == nil) {
		fmt.Fprintf(l.stderr, "%s: %s\n", tag, message)
	}
}

func (l *Logger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(ERROR, format, args...) }

// Package-level convenience functions
func Debug(format string, args ...any) { Get().Debug(format, args...) }
func Info(format string, args ...any)  { Get().Info(format, args...) }
func Warn(format string, args ...any)  { Get().Warn(format, args...) }
func Error(format string, args ...any) { Get().Error(format, args...) }
