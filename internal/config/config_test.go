package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
)

// isolate points the user config lookup at an empty directory and clears
// every DOCWATCH_* override.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, key := range []string{
		"DOCWATCH_INDEX_PATH",
		"DOCWATCH_DEFAULT_LANGUAGE",
		"DOCWATCH_LOG_LEVEL",
		"DOCWATCH_WATCH_MODE",
		"DOCWATCH_INDEX_WORKERS",
	} {
		t.Setenv(key, "")
	}
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)

	assert.Equal(t, DefaultIndexPath(), cfg.Index.Path)
	assert.Equal(t, 2000, cfg.Index.BatchLimit)
	assert.Equal(t, int64(32*1024*1024), cfg.Index.MaxFileSize)
	assert.Equal(t, runtime.NumCPU(), cfg.Index.Workers)

	assert.Equal(t, "en", cfg.Language.Default)
	assert.Empty(t, cfg.Language.Supported)

	assert.Equal(t, WatchModeNotify, cfg.Watch.Mode)
	assert.Equal(t, 2*time.Second, cfg.Watch.PollInterval)
	assert.Contains(t, cfg.Watch.Exclude, "**/.git")

	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, cfg.Validate())
}

func TestNewConfig_ExcludeIsNotShared(t *testing.T) {
	// Given: two configs
	a := NewConfig()
	b := NewConfig()

	// When: one exclude list is modified
	a.Watch.Exclude[0] = "changed"

	// Then: the other is untouched
	assert.NotEqual(t, "changed", b.Watch.Exclude[0])
}

func TestGetUserConfigPath_HonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "docwatch", "config.yaml"), GetUserConfigPath())
}

// =============================================================================
// Layered loading
// =============================================================================

func TestLoad_NoFiles_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Index.BatchLimit, cfg.Index.BatchLimit)
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	// Given: a user config setting the default language
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "docwatch", "config.yaml"), "language:\n  default: pl\n")

	// When: loading
	cfg, err := Load("")

	// Then: user value applied, untouched keys keep defaults
	require.NoError(t, err)
	assert.Equal(t, "pl", cfg.Language.Default)
	assert.Equal(t, 2000, cfg.Index.BatchLimit)
}

func TestLoad_ExplicitFileOverridesUserConfig(t *testing.T) {
	// Given: user and explicit configs disagreeing
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "docwatch", "config.yaml"), "index:\n  batch_limit: 10\n  workers: 3\n")
	explicit := filepath.Join(t.TempDir(), "docwatch.yaml")
	writeFile(t, explicit, "index:\n  batch_limit: 20\n")

	// When: loading with the explicit file
	cfg, err := Load(explicit)

	// Then: explicit wins where set, user config elsewhere
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Index.BatchLimit)
	assert.Equal(t, 3, cfg.Index.Workers)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	// Given: an explicit file and env overrides
	isolate(t)
	explicit := filepath.Join(t.TempDir(), "docwatch.yaml")
	writeFile(t, explicit, "watch:\n  mode: fsnotify\nlanguage:\n  default: de\n")
	indexDir := filepath.Join(t.TempDir(), "idx")
	t.Setenv("DOCWATCH_INDEX_PATH", indexDir)
	t.Setenv("DOCWATCH_DEFAULT_LANGUAGE", "FR")
	t.Setenv("DOCWATCH_WATCH_MODE", "poll")
	t.Setenv("DOCWATCH_INDEX_WORKERS", "7")
	t.Setenv("DOCWATCH_LOG_LEVEL", "debug")

	// When: loading
	cfg, err := Load(explicit)

	// Then: env values win
	require.NoError(t, err)
	assert.Equal(t, indexDir, cfg.Index.Path)
	assert.Equal(t, "fr", cfg.Language.Default)
	assert.Equal(t, WatchModePoll, cfg.Watch.Mode)
	assert.Equal(t, 7, cfg.Index.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_PollIntervalParsesDuration(t *testing.T) {
	isolate(t)
	explicit := filepath.Join(t.TempDir(), "docwatch.yaml")
	writeFile(t, explicit, "watch:\n  mode: poll\n  poll_interval: 500ms\n")

	cfg, err := Load(explicit)

	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.PollInterval)
}

func TestLoad_ExpandsHomeInIndexPath(t *testing.T) {
	isolate(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DOCWATCH_INDEX_PATH", "~/idx")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "idx"), cfg.Index.Path)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "malformed yaml", content: "index: [unclosed\n"},
		{name: "invalid watch mode", content: "watch:\n  mode: inotify\n"},
		{name: "zero batch limit", content: "index:\n  batch_limit: 0\n"},
		{name: "long language tag", content: "language:\n  default: english\n"},
		{name: "bad log level", content: "logging:\n  level: chatty\n"},
		{name: "bad workers env", content: "version: 1\n", env: map[string]string{"DOCWATCH_INDEX_WORKERS": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			explicit := filepath.Join(t.TempDir(), "docwatch.yaml")
			writeFile(t, explicit, tt.content)

			_, err := Load(explicit)

			require.Error(t, err)
			assert.ErrorIs(t, err, dwerrors.ErrConfig)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.True(t, dwerrors.IsFatal(err))
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate_PollModeRequiresInterval(t *testing.T) {
	cfg := NewConfig()
	cfg.Watch.Mode = WatchModePoll
	cfg.Watch.PollInterval = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestValidate_FsnotifyIgnoresInterval(t *testing.T) {
	cfg := NewConfig()
	cfg.Watch.PollInterval = 0

	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// WriteYAML round trip through Load
// =============================================================================

func TestWriteYAML_LoadsBack(t *testing.T) {
	// Given: a modified config written to disk
	isolate(t)
	cfg := NewConfig()
	cfg.Language.Supported = []string{"en", "pl"}
	cfg.Watch.PollInterval = 3 * time.Second
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	// When: writing and loading it back
	require.NoError(t, cfg.WriteYAML(path))
	loaded, err := Load(path)

	// Then: values survive
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "pl"}, loaded.Language.Supported)
	assert.Equal(t, 3*time.Second, loaded.Watch.PollInterval)
}
