package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
)

// DefaultPollInterval is used when no interval is given.
const DefaultPollInterval = 2 * time.Second

// PollingNotifier watches directories by periodically listing them.
// Used where fsnotify does not work (network mounts, some container volumes).
type PollingNotifier struct {
	interval time.Duration
	q        *queue

	mu     sync.Mutex
	dirs   map[Handle]*polledDir
	byPath map[string]Handle
	next   Handle

	stopCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type polledDir struct {
	path    string
	entries map[string]entrySnapshot
}

type entrySnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

var _ Notifier = (*PollingNotifier)(nil)

// NewPollingNotifier creates a polling notifier and starts its scan loop.
func NewPollingNotifier(interval time.Duration) *PollingNotifier {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &PollingNotifier{
		interval: interval,
		q:        newQueue(),
		dirs:     make(map[Handle]*polledDir),
		byPath:   make(map[string]Handle),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Add implements Notifier. The directory's current entries form the
// baseline; only later changes are reported.
func (p *PollingNotifier) Add(dir string) (Handle, error) {
	dir = filepath.Clean(dir)

	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.byPath[dir]; ok && !p.q.isInvalid(h) {
		return h, nil
	}
	entries, err := snapshotDir(dir)
	if err != nil {
		return 0, dwerrors.FSAccessError(dir, err)
	}

	p.next++
	h := p.next
	p.dirs[h] = &polledDir{path: dir, entries: entries}
	p.byPath[dir] = h
	return h, nil
}

// Wait implements Notifier.
func (p *PollingNotifier) Wait(ctx context.Context) (Handle, error) {
	return p.q.wait(ctx)
}

// Drain implements Notifier.
func (p *PollingNotifier) Drain(h Handle) []Event {
	return p.q.drain(h)
}

// Reset implements Notifier.
func (p *PollingNotifier) Reset(h Handle) bool {
	p.mu.Lock()
	d, ok := p.dirs[h]
	p.mu.Unlock()
	if !ok {
		return false
	}
	if info, err := os.Stat(d.path); err != nil || !info.IsDir() {
		p.q.invalidate(h)
	}
	return p.q.reset(h)
}

// Remove implements Notifier.
func (p *PollingNotifier) Remove(h Handle) {
	p.mu.Lock()
	if d, ok := p.dirs[h]; ok {
		delete(p.dirs, h)
		if p.byPath[d.path] == h {
			delete(p.byPath, d.path)
		}
	}
	p.mu.Unlock()
	p.q.forget(h)
}

// Close implements Notifier.
func (p *PollingNotifier) Close() error {
	p.closeOnce.Do(func() {
		close(p.stopCh)
		<-p.done
		p.q.close()
	})
	return nil
}

func (p *PollingNotifier) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll rescans every registered directory and queues the differences.
func (p *PollingNotifier) poll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for h, d := range p.dirs {
		if p.q.isInvalid(h) {
			continue
		}
		current, err := snapshotDir(d.path)
		if err != nil {
			slog.Debug("poll_dir_unreachable",
				slog.String("path", d.path),
				slog.String("error", err.Error()))
			p.q.invalidate(h)
			continue
		}
		for _, ev := range diffEntries(d.path, d.entries, current) {
			p.q.push(h, ev)
		}
		d.entries = current
	}
}

// diffEntries reports deletions, then creations, then modifications, each
// in name order. Directory timestamps are not compared: they change with
// their children, which are watched separately. An entry that switched
// between file and directory is reported as deleted and created again.
func diffEntries(dir string, prev, current map[string]entrySnapshot) []Event {
	var deleted, created, modified []string
	for name := range prev {
		if _, ok := current[name]; !ok {
			deleted = append(deleted, name)
		}
	}
	for name, snap := range current {
		old, ok := prev[name]
		switch {
		case !ok:
			created = append(created, name)
		case old.isDir != snap.isDir:
			deleted = append(deleted, name)
			created = append(created, name)
		case !snap.isDir && (old.modTime != snap.modTime || old.size != snap.size):
			modified = append(modified, name)
		}
	}

	var events []Event
	for _, group := range []struct {
		kind  Kind
		names []string
	}{{Deleted, deleted}, {Created, created}, {Modified, modified}} {
		sort.Strings(group.names)
		for _, name := range group.names {
			events = append(events, Event{Kind: group.kind, Dir: dir, Name: name})
		}
	}
	return events
}

func snapshotDir(dir string) (map[string]entrySnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]entrySnapshot, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// Vanished between ReadDir and Info
			continue
		}
		snap[e.Name()] = entrySnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
			isDir:   e.IsDir(),
		}
	}
	return snap, nil
}
