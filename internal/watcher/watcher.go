package watcher

import (
	"context"
	"errors"
	"path/filepath"
)

// Handle identifies one directory registration. Handles are minted by a
// Notifier and never reused by it.
type Handle uint64

// Kind is the kind of change an Event reports.
type Kind int

const (
	// Created indicates a new file or directory appeared.
	Created Kind = iota
	// Deleted indicates a file or directory disappeared or was moved away.
	Deleted
	// Modified indicates an existing entry changed.
	Modified
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Event is one change to an entry of a watched directory.
type Event struct {
	Kind Kind
	// Dir is the watched directory the event was delivered for.
	Dir string
	// Name is the entry's name within Dir.
	Name string
}

// Path returns the full path of the entry.
func (e Event) Path() string {
	return filepath.Join(e.Dir, e.Name)
}

// ErrClosed is returned by Wait after Close.
var ErrClosed = errors.New("notifier closed")

// Notifier delivers filesystem events per registered directory.
type Notifier interface {
	// Add registers dir and returns its handle. Adding a directory that is
	// already registered returns the existing handle.
	Add(dir string) (Handle, error)

	// Wait blocks until some handle has pending events or became invalid.
	// It returns ctx.Err() on cancellation and ErrClosed after Close.
	Wait(ctx context.Context) (Handle, error)

	// Drain returns and clears the pending events of h in delivery order.
	Drain(h Handle) []Event

	// Reset re-arms h so Wait can return it again. It returns false if the
	// directory is gone or unreachable.
	Reset(h Handle) bool

	// Remove cancels the registration of h.
	Remove(h Handle)

	// Close releases the notifier. Blocked Wait calls return ErrClosed.
	Close() error
}
