package live

import (
	"context"
	"sync"

	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// NotifyQueue is a bounded FIFO guarded by a mutex. Producers block while it
// is full; the consumer blocks in DrainWait until something arrives.
type NotifyQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []T
	capacity int
	closed   bool
}

func NewNotifyQueue[T any](capacity int) *NotifyQueue[T] {
	if capacity < 1 {
		capacity = 1
	}

	q := &NotifyQueue[T]{capacity: capacity, items: make([]T, 0, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)

	return q
}

// Push appends v, waiting for room. It fails once the queue is closed.
func (q *NotifyQueue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) >= q.capacity && !q.closed {
		q.notFull.Wait()
	}

	if q.closed {
		return errors.New(errors.ErrCodeQueueClosed, "queue is closed")
	}

	q.items = append(q.items, v)
	q.notEmpty.Signal()

	return nil
}

// DrainWait blocks until the queue holds at least one item, then removes and
// returns all of them. It returns ctx's error when ctx ends first and a
// QueueClosed error once the queue is closed and empty.
func (q *NotifyQueue[T]) DrainWait(ctx context.Context) ([]T, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		q.notEmpty.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed && ctx.Err() == nil {
		q.notEmpty.Wait()
	}

	if len(q.items) > 0 {
		return q.take(), nil
	}

	if q.closed {
		return nil, errors.New(errors.ErrCodeQueueClosed, "queue is closed")
	}

	return nil, ctx.Err()
}

// TryDrain removes and returns whatever is queued without waiting.
func (q *NotifyQueue[T]) TryDrain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	return q.take()
}

func (q *NotifyQueue[T]) take() []T {
	out := q.items
	q.items = make([]T, 0, q.capacity)
	q.notFull.Broadcast()

	return out
}

func (q *NotifyQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Close wakes every waiter. Items already queued can still be drained.
func (q *NotifyQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
