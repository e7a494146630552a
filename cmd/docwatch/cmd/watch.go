package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docwatch/internal/config"
	"github.com/Aman-CERP/docwatch/internal/output"
	"github.com/Aman-CERP/docwatch/internal/synchronizer"
	"github.com/Aman-CERP/docwatch/internal/watcher"
)

// runWatch watches every registered root until interrupted or until no
// watched directory is left. The index lock is held throughout.
func runWatch(cmd *cobra.Command, g *globalOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx, err := openIndex(g.cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	notifier, err := newNotifier(g.cfg.Watch)
	if err != nil {
		return err
	}
	defer func() { _ = notifier.Close() }()

	tree := watcher.NewTree(notifier, idx.exclude)
	syn := synchronizer.New(notifier, tree, idx.store, synchronizer.Options{Exclude: idx.exclude})

	watched, err := syn.WatchRoots(ctx)
	if err != nil {
		return err
	}
	if watched == 0 {
		output.New(cmd.OutOrStdout()).Warning("No indexed directories to watch. Add one with: docwatch --add <dir>")
		return nil
	}

	slog.Info("watch_started",
		slog.String("index", idx.store.Path()),
		slog.String("mode", g.cfg.Watch.Mode),
		slog.Int("roots", watched))

	err = syn.Run(ctx)
	if fn, ok := notifier.(*watcher.FsnotifyNotifier); ok && fn.Overflows() > 0 {
		slog.Warn("events_lost",
			slog.Uint64("overflows", fn.Overflows()),
			slog.String("hint", "run docwatch --reindex to catch up"))
	}
	if errors.Is(err, context.Canceled) {
		slog.Info("watch_interrupted")
		return nil
	}
	return err
}

// newNotifier creates the notifier selected by watch.mode.
func newNotifier(cfg config.WatchConfig) (watcher.Notifier, error) {
	if cfg.Mode == config.WatchModePoll {
		return watcher.NewPollingNotifier(cfg.PollInterval), nil
	}
	n, err := watcher.NewFsnotifyNotifier()
	if err != nil {
		return nil, err
	}
	return n, nil
}
