package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Debug switches to JSON file logging at debug level.
	Debug bool
	// FilePath is the log file used in debug mode.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// Stderr receives console output. Nil means os.Stderr.
	Stderr io.Writer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		FilePath:  DefaultLogPath(),
		MaxSizeMB: 10,
		MaxFiles:  5,
	}
}

// Setup builds a logger for cfg and returns it with a cleanup function.
// The cleanup function must be called to flush and close the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	if !cfg.Debug {
		handler := slog.NewTextHandler(stderr, &slog.HandlerOptions{
			Level: ParseLevel(cfg.Level),
		})
		return slog.New(handler), func() {}, nil
	}

	path := cfg.FilePath
	if path == "" {
		path = DefaultLogPath()
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 5
	}

	writer, err := NewRotatingWriter(path, maxSize, maxFiles)
	if err != nil {
		return nil, nil, err
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writer, stderr), &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return slog.New(handler), cleanup, nil
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
