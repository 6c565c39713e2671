// Package stream provides the hand-off between gateway delivery and chain assembly.
package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"option-spreads/internal/models"
)

// DefaultQueueSize is the buffer capacity used when none is configured.
const DefaultQueueSize = 1024

// Queue is a bounded FIFO of quote updates. The gateway's delivery goroutine
// pushes; a single consumer goroutine pops. Updates are delivered in push
// order.
type Queue struct {
	updates   chan models.QuoteUpdate
	done      chan struct{}
	closeOnce sync.Once

	pushed  atomic.Uint64
	popped  atomic.Uint64
	dropped atomic.Uint64
}

// NewQueue creates a queue holding at most size pending updates.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		updates: make(chan models.QuoteUpdate, size),
		done:    make(chan struct{}),
	}
}

// Push enqueues an update, blocking while the queue is full. It returns false
// and counts the update as dropped once the queue has been closed.
func (q *Queue) Push(u models.QuoteUpdate) bool {
	// Checked first so a closed queue with free capacity still refuses.
	select {
	case <-q.done:
		q.dropped.Add(1)
		return false
	default:
	}

	select {
	case q.updates <- u:
		q.pushed.Add(1)
		return true
	case <-q.done:
		q.dropped.Add(1)
		return false
	}
}

// Next waits for the next update. The boolean is false when ctx ends or the
// queue is closed with nothing buffered.
func (q *Queue) Next(ctx context.Context) (models.QuoteUpdate, bool) {
	select {
	case u := <-q.updates:
		q.popped.Add(1)
		return u, true
	default:
	}

	select {
	case u := <-q.updates:
		q.popped.Add(1)
		return u, true
	case <-ctx.Done():
		return models.QuoteUpdate{}, false
	case <-q.done:
		return q.TryNext()
	}
}

// TryNext returns a buffered update without waiting.
func (q *Queue) TryNext() (models.QuoteUpdate, bool) {
	select {
	case u := <-q.updates:
		q.popped.Add(1)
		return u, true
	default:
		return models.QuoteUpdate{}, false
	}
}

// C exposes the receive side for use in a select. Callers that receive from
// it directly should call Ack for each update so metrics stay accurate.
func (q *Queue) C() <-chan models.QuoteUpdate {
	return q.updates
}

// Ack records an update received through C.
func (q *Queue) Ack() {
	q.popped.Add(1)
}

// Drain hands every buffered update to fn in order and returns how many were
// drained. Updates pushed concurrently may or may not be included.
func (q *Queue) Drain(fn func(models.QuoteUpdate)) int {
	n := 0
	for {
		u, ok := q.TryNext()
		if !ok {
			return n
		}
		fn(u)
		n++
	}
}

// Close stops accepting updates. Buffered updates remain drainable.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Len returns the number of buffered updates.
func (q *Queue) Len() int {
	return len(q.updates)
}

// Metrics returns queue counters.
func (q *Queue) Metrics() QueueMetrics {
	return QueueMetrics{
		Pushed:  q.pushed.Load(),
		Popped:  q.popped.Load(),
		Dropped: q.dropped.Load(),
		Pending: q.Len(),
	}
}

// QueueMetrics contains queue counters.
type QueueMetrics struct {
	Pushed  uint64
	Popped  uint64
	Dropped uint64
	Pending int
}
