package yard

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of raw inbound payloads. The transport goroutine
// enqueues; a single Run loop hands payloads to the engine in arrival order,
// so no snapshot is skipped while a tick is in progress.
type Queue struct {
	mu     sync.Mutex
	items  []string
	closed bool
	signal chan struct{} // buffered, size 1
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		items:  make([]string, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends payload. It returns false once the queue is closed.
func (q *Queue) Enqueue(payload string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, payload)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front payload without blocking.
func (q *Queue) TryDequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}
	p := q.items[0]
	q.items[0] = ""
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return p, true
}

// Len returns the number of queued payloads.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further enqueues and wakes Run so it can drain and return.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Run calls handle for each payload in order until ctx is done or the queue
// is closed and drained.
func (q *Queue) Run(ctx context.Context, handle func(payload string)) error {
	for {
		for {
			p, ok := q.TryDequeue()
			if !ok {
				break
			}
			handle(p)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-q.signal:
			if !ok && q.Len() == 0 {
				return nil
			}
		}
	}
}
