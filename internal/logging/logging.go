package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel atomic.Int32
	levelOnce    sync.Once

	fileMu     sync.Mutex
	fileWriter *lumberjack.Logger
)

// levelFromEnv reads DEBUG and LOG_LEVEL
func levelFromEnv() LogLevel {
	if debug := os.Getenv("DEBUG"); debug != "" {
		switch strings.ToLower(debug) {
		case "1", "true", "yes", "on":
			return LevelDebug
		}
	}

	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return LevelInfo
	}
	return level
}

// initLevel initializes the log level from environment variables
func initLevel() {
	levelOnce.Do(func() {
		currentLevel.Store(int32(levelFromEnv()))
	})
}

// ParseLevel converts a level name. An empty name means info.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLevel overrides the level taken from the environment
func SetLevel(level LogLevel) {
	levelOnce.Do(func() {})
	currentLevel.Store(int32(level))
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return LogLevel(currentLevel.Load())
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// FileOptions configures rotation of the log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// SetOutputFile sends log output to stderr and a rotating file. An empty
// path restores stderr-only output.
func SetOutputFile(opts FileOptions) {
	fileMu.Lock()
	defer fileMu.Unlock()

	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}
	if opts.Path == "" {
		log.SetOutput(os.Stderr)
		return
	}

	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 100
	}
	fileWriter = &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, fileWriter))
}

// Close flushes and closes the log file, if any
func Close() error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	log.SetOutput(os.Stderr)
	return err
}

// ConfigureFromEnv applies LOG_FILE (and its rotation settings) from the
// environment
func ConfigureFromEnv() {
	initLevel()
	path := os.Getenv("LOG_FILE")
	if path == "" {
		return
	}
	SetOutputFile(FileOptions{
		Path:       path,
		MaxSizeMB:  envInt("LOG_FILE_MAX_SIZE_MB", 100),
		MaxBackups: envInt("LOG_FILE_MAX_BACKUPS", 3),
		MaxAgeDays: envInt("LOG_FILE_MAX_AGE_DAYS", 28),
		Compress:   os.Getenv("LOG_FILE_COMPRESS") == "true",
	})
}

func envInt(key string, fallback int) int {
	var n int
	if _, err := fmt.Sscanf(os.Getenv(key), "%d", &n); err != nil || n < 0 {
		return fallback
	}
	return n
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		log.Printf("[INFO] "+format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		log.Printf("[WARN] "+format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		log.Printf("[ERROR] "+format, args...)
	}
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// Printf is a pass-through to log.Printf for messages that should always print
func Printf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
