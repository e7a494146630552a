// Package config loads docwatch configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/docwatch/config.yaml or ~/.config/docwatch/config.yaml)
//  3. Explicit config file (--config)
//  4. Environment variables (DOCWATCH_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
)

// Watch modes.
const (
	WatchModeNotify = "fsnotify"
	WatchModePoll   = "poll"
)

// Config represents the complete docwatch configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Index    IndexConfig    `yaml:"index" json:"index"`
	Language LanguageConfig `yaml:"language" json:"language"`
	Watch    WatchConfig    `yaml:"watch" json:"watch"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// IndexConfig configures the index store and how files are written to it.
type IndexConfig struct {
	// Path is the directory holding the bleve index.
	// Default: ~/.docwatch/index
	Path string `yaml:"path" json:"path"`

	// BatchLimit is the number of buffered mutations after which a session
	// flushes between files. Default: 2000
	BatchLimit int `yaml:"batch_limit" json:"batch_limit"`

	// MaxFileSize is the largest file, in bytes, whose content is extracted.
	// Default: 32MB
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`

	// Workers bounds concurrent content extraction while indexing a tree.
	// Default: runtime.NumCPU()
	Workers int `yaml:"workers" json:"workers"`
}

// LanguageConfig configures language routing of extracted content.
type LanguageConfig struct {
	// Default is the ISO 639-1 tag used when detection is unreliable or
	// the detected language is not supported. Default: "en"
	Default string `yaml:"default" json:"default"`

	// Supported restricts detection results to these tags.
	// Empty means every language with an analyzer bucket.
	Supported []string `yaml:"supported" json:"supported"`
}

// WatchConfig configures filesystem event notification.
type WatchConfig struct {
	// Mode is "fsnotify" (inotify/kqueue) or "poll".
	Mode string `yaml:"mode" json:"mode"`

	// PollInterval is the scan interval in poll mode. Default: 2s
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`

	// Exclude lists glob patterns for paths that are neither watched nor indexed.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// defaultExcludePatterns are excluded unless the user config replaces them.
var defaultExcludePatterns = []string{
	"**/.git",
	"**/.svn",
	"**/.hg",
	"**/*.swp",
	"**/*~",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Path:        DefaultIndexPath(),
			BatchLimit:  2000,
			MaxFileSize: 32 * 1024 * 1024,
			Workers:     runtime.NumCPU(),
		},
		Language: LanguageConfig{
			Default:   "en",
			Supported: nil,
		},
		Watch: WatchConfig{
			Mode:         WatchModeNotify,
			PollInterval: 2 * time.Second,
			Exclude:      append([]string(nil), defaultExcludePatterns...),
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DataDir returns the docwatch data directory (~/.docwatch).
// Falls back to the temp directory if the home directory is unavailable.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docwatch")
	}
	return filepath.Join(home, ".docwatch")
}

// DefaultIndexPath returns the default index location.
func DefaultIndexPath() string {
	return filepath.Join(DataDir(), "index")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/docwatch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docwatch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docwatch", "config.yaml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docwatch", "config.yaml")
	}
	return filepath.Join(home, ".config", "docwatch", "config.yaml")
}

// Load builds the effective configuration.
// explicitPath may be empty; when set, the file must exist.
func Load(explicitPath string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, dwerrors.ConfigError("invalid user config "+userPath, err)
		}
	}

	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return nil, dwerrors.ConfigError("config file not found: "+explicitPath, nil)
		}
		if err := cfg.loadYAML(explicitPath); err != nil {
			return nil, dwerrors.ConfigError("invalid config "+explicitPath, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, dwerrors.ConfigError("invalid environment override", err)
	}

	cfg.Index.Path = expandHome(cfg.Index.Path)

	if err := cfg.Validate(); err != nil {
		return nil, dwerrors.ConfigError("invalid configuration", err)
	}
	return cfg, nil
}

// loadYAML merges a YAML file over the current values.
// Keys absent from the file keep their current value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies DOCWATCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("DOCWATCH_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("DOCWATCH_DEFAULT_LANGUAGE"); v != "" {
		c.Language.Default = strings.ToLower(v)
	}
	if v := os.Getenv("DOCWATCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DOCWATCH_WATCH_MODE"); v != "" {
		c.Watch.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("DOCWATCH_INDEX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOCWATCH_INDEX_WORKERS: %w", err)
		}
		c.Index.Workers = n
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Index.Path) == "" {
		return fmt.Errorf("index.path must not be empty")
	}
	if c.Index.BatchLimit <= 0 {
		return fmt.Errorf("index.batch_limit must be positive, got %d", c.Index.BatchLimit)
	}
	if c.Index.MaxFileSize <= 0 {
		return fmt.Errorf("index.max_file_size must be positive, got %d", c.Index.MaxFileSize)
	}
	if c.Index.Workers <= 0 {
		return fmt.Errorf("index.workers must be positive, got %d", c.Index.Workers)
	}

	if len(c.Language.Default) != 2 {
		return fmt.Errorf("language.default must be a two-letter ISO 639-1 code, got %q", c.Language.Default)
	}

	switch c.Watch.Mode {
	case WatchModeNotify:
	case WatchModePoll:
		if c.Watch.PollInterval <= 0 {
			return fmt.Errorf("watch.poll_interval must be positive in poll mode, got %s", c.Watch.PollInterval)
		}
	default:
		return fmt.Errorf("watch.mode must be 'fsnotify' or 'poll', got %s", c.Watch.Mode)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
