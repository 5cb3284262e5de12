package jobs

import (
	"context"
	"sync"
)

// DefaultMaxQueueSize is used when a queue is created with a non-positive capacity.
const DefaultMaxQueueSize = 1000

// Queue is a bounded FIFO of jobs.
//
// The number of queued jobs never exceeds the capacity. A separate token
// channel signals availability so that the processing loop can sleep until
// work arrives instead of polling.
type Queue struct {
	mu       sync.Mutex
	items    []*Job
	capacity int
	avail    chan struct{}
}

// NewQueue creates a queue that holds at most capacity jobs.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultMaxQueueSize
	}
	return &Queue{
		items:    make([]*Job, 0, min(capacity, 64)),
		capacity: capacity,
		avail:    make(chan struct{}, capacity),
	}
}

// Enqueue appends job to the tail of the queue.
// It never blocks: a full queue yields ErrQueueFull.
func (q *Queue) Enqueue(job *Job) error {
	if job == nil {
		return ErrInvalidArgument
	}

	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, job)
	q.mu.Unlock()

	select {
	case q.avail <- struct{}{}:
	default:
		// Token buffer saturated; waiters are already guaranteed to wake.
	}
	return nil
}

// TryDequeue removes and returns the head of the queue, or false when empty.
func (q *Queue) TryDequeue() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return job, true
}

// WaitForAvailability blocks until at least one enqueue has been signalled
// or ctx is done. It does not dequeue; a following TryDequeue may still come
// up empty if another consumer got there first.
func (q *Queue) WaitForAvailability(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.avail:
		return nil
	}
}

// Count returns the number of queued jobs at the time of the call.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the maximum number of queued jobs.
func (q *Queue) Capacity() int {
	return q.capacity
}
