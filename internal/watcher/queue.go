package watcher

import (
	"context"
	"sync"
)

// queue is the per-handle event queue shared by the notifiers.
//
// A handle is in the ready FIFO at most once. Wait marks it signalled and
// events arriving afterwards accumulate without requeueing it until Reset.
type queue struct {
	mu        sync.Mutex
	pending   map[Handle][]Event
	invalid   map[Handle]bool
	signalled map[Handle]bool
	queued    map[Handle]bool
	ready     []Handle

	signal    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newQueue() *queue {
	return &queue{
		pending:   make(map[Handle][]Event),
		invalid:   make(map[Handle]bool),
		signalled: make(map[Handle]bool),
		queued:    make(map[Handle]bool),
		signal:    make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
}

// push appends ev to h's pending events.
func (q *queue) push(h Handle, ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending[h] = append(q.pending[h], ev)
	q.enqueueLocked(h)
}

// invalidate marks h as gone so that its next Reset fails.
func (q *queue) invalidate(h Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.invalid[h] {
		return
	}
	q.invalid[h] = true
	q.enqueueLocked(h)
}

func (q *queue) enqueueLocked(h Handle) {
	if q.queued[h] || q.signalled[h] {
		return
	}
	q.queued[h] = true
	q.ready = append(q.ready, h)

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// isInvalid reports whether h was invalidated.
func (q *queue) isInvalid(h Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.invalid[h]
}

func (q *queue) wait(ctx context.Context) (Handle, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		q.mu.Lock()
		if len(q.ready) > 0 {
			h := q.ready[0]
			q.ready = q.ready[1:]
			delete(q.queued, h)
			q.signalled[h] = true
			more := len(q.ready) > 0
			q.mu.Unlock()

			// Keep the signal set for the remaining handles
			if more {
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}
			return h, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-q.closed:
			return 0, ErrClosed
		case <-q.signal:
		}
	}
}

func (q *queue) drain(h Handle) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.pending[h]
	delete(q.pending, h)
	return events
}

// reset re-arms h and reports whether it is still valid.
func (q *queue) reset(h Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.signalled, h)
	if q.invalid[h] {
		return false
	}
	if len(q.pending[h]) > 0 {
		q.enqueueLocked(h)
	}
	return true
}

// forget drops all state of h.
func (q *queue) forget(h Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.pending, h)
	delete(q.invalid, h)
	delete(q.signalled, h)
	if q.queued[h] {
		delete(q.queued, h)
		for i, r := range q.ready {
			if r == h {
				q.ready = append(q.ready[:i], q.ready[i+1:]...)
				break
			}
		}
	}
}

func (q *queue) close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
