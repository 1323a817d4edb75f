// Package logging wires log/slog to the console and to weekly rotating files,
// and exposes package-level helpers used across the service.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/giygas/medlookup-api/config"
)

// Options controls InitLogger
type Options struct {
	Dir            string
	Env            config.Environment
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
	Verbose        bool // test environment only: log to console at info
}

type LoggingService struct {
	Logger  *slog.Logger
	rotator *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService
	initMu                sync.Mutex
)

// parseLogLevel maps LOG_LEVEL values to slog levels, info when unknown
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel returns the console level for env. An explicit LOG_LEVEL
// wins everywhere except in tests, which stay quiet unless verbose is set.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}
	if level != "" {
		return parseLogLevel(level)
	}
	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the level used for the rotating file
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// NewLogger builds the console + file logger. When the log directory cannot be
// used it falls back to a console-only logger and reports why.
func NewLogger(opts Options) (*slog.Logger, *RotatingLogger, error) {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return slog.New(console), nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	maxSize := opts.MaxFileSize
	if maxSize == 0 {
		maxSize = defaultMaxFileSize
	}
	retention := opts.RetentionWeeks
	if retention <= 0 {
		retention = 4
	}

	rotator := NewRotatingLoggerWithSizeLimit(opts.Dir, retention, maxSize)
	if err := rotator.open(); err != nil {
		return slog.New(console), nil, fmt.Errorf("failed to initialize rotating logger: %w", err)
	}
	rotator.startCleanup()

	file := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: GetFileLogLevel()})
	return slog.New(newMultiHandler(console, file)), rotator, nil
}

// InitLogger initializes the global logger and makes it the slog default
func InitLogger(opts Options) {
	initMu.Lock()
	defer initMu.Unlock()

	if DefaultLoggingService != nil && DefaultLoggingService.rotator != nil {
		_ = DefaultLoggingService.rotator.Close()
	}

	logger, rotator, err := NewLogger(opts)
	if err != nil {
		logger.Error("File logging disabled", "error", err)
	}

	DefaultLoggingService = &LoggingService{Logger: logger, rotator: rotator}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file, if any
func Close() error {
	initMu.Lock()
	defer initMu.Unlock()

	if DefaultLoggingService == nil || DefaultLoggingService.rotator == nil {
		return nil
	}
	err := DefaultLoggingService.rotator.Close()
	DefaultLoggingService.rotator = nil
	return err
}

func logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.Default()
	}
	return DefaultLoggingService.Logger
}

// Logger returns the global logger, slog's default when not initialized
func Logger() *slog.Logger {
	return logger()
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}
