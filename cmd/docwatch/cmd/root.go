// Package cmd provides the CLI commands for docwatch.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docwatch/internal/config"
	"github.com/Aman-CERP/docwatch/internal/logging"
	"github.com/Aman-CERP/docwatch/internal/profiling"
	"github.com/Aman-CERP/docwatch/pkg/version"
)

// skipConfig marks commands that run without loading the configuration.
const skipConfig = "skip_config"

// globalOptions holds the persistent flags and the state built from them.
type globalOptions struct {
	indexPath  string
	configPath string
	debug      bool
	profile    profiling.Options

	cfg            *config.Config
	loggingCleanup func()
	profileRun     *profiling.Run
}

// NewRootCmd creates the root command for the docwatch CLI.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}
	var admin adminFlags

	cmd := &cobra.Command{
		Use:   "docwatch",
		Short: "Keep a full-text index in sync with watched directories",
		Long: `docwatch indexes the text files of registered directories and keeps the
index up to date while files are created, modified and deleted.

Run without flags to start watching every registered directory.
Use --add, --rm, --reindex, --purge, --clear or --list to manage the index.`,
		Example: `  # Register a directory and index it
  docwatch --add ~/notes

  # Watch all registered directories until interrupted
  docwatch

  # Query the index
  docwatch search "meeting notes"`,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if admin.any() {
				return runAdmin(cmd, g, admin)
			}
			return runWatch(cmd, g)
		},
	}

	cmd.SetVersionTemplate("docwatch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&g.indexPath, "index", "", "Index directory (default ~/.docwatch/index)")
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file, applied over the user config")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging to ~/.docwatch/logs/")

	cmd.PersistentFlags().StringVar(&g.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.Trace, "profile-trace", "", "Write execution trace to file")
	for _, name := range []string{"profile-cpu", "profile-mem", "profile-trace"} {
		_ = cmd.PersistentFlags().MarkHidden(name)
	}

	cmd.Flags().StringVar(&admin.add, "add", "", "Register a directory and index it")
	cmd.Flags().StringVar(&admin.rm, "rm", "", "Unregister a directory and delete its documents")
	cmd.Flags().BoolVar(&admin.reindex, "reindex", false, "Rebuild the index from the registered directories")
	cmd.Flags().BoolVar(&admin.purge, "purge", false, "Delete everything in the index, registrations included")
	cmd.Flags().BoolVar(&admin.clear, "clear", false, "Delete indexed documents but keep registered directories")
	cmd.Flags().BoolVar(&admin.list, "list", false, "List registered directories")
	cmd.MarkFlagsMutuallyExclusive("add", "rm", "reindex", "purge", "clear", "list")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return g.setup(cmd)
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return g.teardown()
	}

	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newInspectCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup loads the configuration and installs the default logger.
func (g *globalOptions) setup(cmd *cobra.Command) error {
	logCfg := logging.DefaultConfig()
	logCfg.Debug = g.debug
	logCfg.Stderr = cmd.ErrOrStderr()

	if cmd.Annotations[skipConfig] != "true" {
		cfg, err := config.Load(g.configPath)
		if err != nil {
			return err
		}
		if g.indexPath != "" {
			cfg.Index.Path = g.indexPath
		}
		g.cfg = cfg

		logCfg.Level = cfg.Logging.Level
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	g.loggingCleanup = cleanup
	slog.SetDefault(logger)

	if g.debug {
		slog.Debug("debug_logging_enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Version))
	}

	if g.profile.Enabled() {
		run, err := profiling.Start(g.profile)
		if err != nil {
			return err
		}
		g.profileRun = run
	}
	return nil
}

func (g *globalOptions) teardown() error {
	var err error
	if g.profileRun != nil {
		err = g.profileRun.Stop()
		g.profileRun = nil
	}
	if g.loggingCleanup != nil {
		g.loggingCleanup()
		g.loggingCleanup = nil
	}
	return err
}
