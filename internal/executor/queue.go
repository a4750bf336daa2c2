package executor

import (
	"context"
	"time"

	"github.com/flowzero/zflow/pkg/api"
)

// evalTask is a unit of work for a worker: evaluate a flow and durably
// record its outcome.
type evalTask struct {
	FlowId     api.FlowId
	Flow       api.Flow
	EnqueuedAt time.Time
}

// queue is a simple async task queue, adapted from the teacher's
// taskqueue.Queue but narrowed to the one kind of task this executor
// schedules: evaluating a flow.
type queue interface {
	Enqueue(ctx context.Context, t evalTask) error
	Dequeue(ctx context.Context) (*evalTask, error)
	Len() int
}

// inMemoryQueue is a queue backed by a buffered channel, safe for
// concurrent use.
type inMemoryQueue struct {
	ch chan evalTask
}

func newInMemoryQueue(capacity int) *inMemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &inMemoryQueue{ch: make(chan evalTask, capacity)}
}

var _ queue = (*inMemoryQueue)(nil)

func (q *inMemoryQueue) Enqueue(ctx context.Context, t evalTask) error {
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *inMemoryQueue) Dequeue(ctx context.Context) (*evalTask, error) {
	select {
	case t := <-q.ch:
		return &t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *inMemoryQueue) Len() int {
	return len(q.ch)
}
