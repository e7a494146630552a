package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// MemNotifier is a scripted Notifier for tests. Events are injected with
// Emit; nothing watches the real filesystem.
type MemNotifier struct {
	q *queue

	mu      sync.Mutex
	byPath  map[string]Handle
	paths   map[Handle]string
	next    Handle
	failAdd map[string]error
	added   []string
}

var _ Notifier = (*MemNotifier)(nil)

// NewMemNotifier creates an empty MemNotifier.
func NewMemNotifier() *MemNotifier {
	return &MemNotifier{
		q:       newQueue(),
		byPath:  make(map[string]Handle),
		paths:   make(map[Handle]string),
		failAdd: make(map[string]error),
	}
}

// FailAdd makes later Add calls for dir return err.
func (m *MemNotifier) FailAdd(dir string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAdd[filepath.Clean(dir)] = err
}

// Add implements Notifier.
func (m *MemNotifier) Add(dir string) (Handle, error) {
	dir = filepath.Clean(dir)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failAdd[dir]; err != nil {
		return 0, err
	}
	if h, ok := m.byPath[dir]; ok && !m.q.isInvalid(h) {
		return h, nil
	}
	m.next++
	h := m.next
	m.byPath[dir] = h
	m.paths[h] = dir
	m.added = append(m.added, dir)
	return h, nil
}

// Emit queues one event for the registered directory dir.
func (m *MemNotifier) Emit(dir string, kind Kind, name string) error {
	dir = filepath.Clean(dir)

	m.mu.Lock()
	h, ok := m.byPath[dir]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s is not registered", dir)
	}
	m.q.push(h, Event{Kind: kind, Dir: dir, Name: name})
	return nil
}

// Invalidate marks dir's registration as gone.
func (m *MemNotifier) Invalidate(dir string) {
	m.mu.Lock()
	h, ok := m.byPath[filepath.Clean(dir)]
	m.mu.Unlock()
	if ok {
		m.q.invalidate(h)
	}
}

// Watched returns the registered directories, sorted.
func (m *MemNotifier) Watched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.byPath))
	for p := range m.byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Added returns every directory passed to a successful Add that minted a
// handle, in call order.
func (m *MemNotifier) Added() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.added...)
}

// Wait implements Notifier.
func (m *MemNotifier) Wait(ctx context.Context) (Handle, error) {
	return m.q.wait(ctx)
}

// Drain implements Notifier.
func (m *MemNotifier) Drain(h Handle) []Event {
	return m.q.drain(h)
}

// Reset implements Notifier.
func (m *MemNotifier) Reset(h Handle) bool {
	return m.q.reset(h)
}

// Remove implements Notifier.
func (m *MemNotifier) Remove(h Handle) {
	m.mu.Lock()
	if path, ok := m.paths[h]; ok {
		delete(m.paths, h)
		if m.byPath[path] == h {
			delete(m.byPath, path)
		}
	}
	m.mu.Unlock()
	m.q.forget(h)
}

// Close implements Notifier.
func (m *MemNotifier) Close() error {
	m.q.close()
	return nil
}
