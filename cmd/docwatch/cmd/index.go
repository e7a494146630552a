package cmd

import (
	"log/slog"
	"path/filepath"

	"github.com/Aman-CERP/docwatch/internal/config"
	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/extract"
	"github.com/Aman-CERP/docwatch/internal/ignore"
	"github.com/Aman-CERP/docwatch/internal/lock"
	"github.com/Aman-CERP/docwatch/internal/router"
	"github.com/Aman-CERP/docwatch/internal/store"
)

// openedIndex is an index store held under the index lock.
type openedIndex struct {
	store   *store.Store
	exclude *ignore.Matcher
	lock    *lock.FileLock
}

// openIndex locks and opens the configured index. A lock held by another
// process fails fast with an IndexLockedError.
func openIndex(cfg *config.Config) (*openedIndex, error) {
	exclude, err := ignore.New(cfg.Watch.Exclude)
	if err != nil {
		return nil, dwerrors.ConfigError("invalid watch.exclude pattern", err)
	}

	path := filepath.Clean(cfg.Index.Path)
	l := lock.ForIndex(path)
	if err := l.Acquire(path); err != nil {
		return nil, err
	}

	st, err := store.Open(path, store.Options{
		Extractor: extract.NewTextExtractor(cfg.Index.MaxFileSize),
		Classifier: router.New(router.Config{
			Default:   cfg.Language.Default,
			Supported: cfg.Language.Supported,
		}, nil),
		Exclude:    exclude,
		BatchLimit: cfg.Index.BatchLimit,
		Workers:    cfg.Index.Workers,
	})
	if err != nil {
		_ = l.Unlock()
		return nil, err
	}

	return &openedIndex{store: st, exclude: exclude, lock: l}, nil
}

// Close closes the store and releases the lock.
func (o *openedIndex) Close() {
	if err := o.store.Close(); err != nil {
		slog.Warn("index_close_failed", slog.String("error", err.Error()))
	}
	if err := o.lock.Unlock(); err != nil {
		slog.Warn("index_unlock_failed", slog.String("error", err.Error()))
	}
}
