package scraper

import (
	"context"
	"fmt"
	"sync"

	nuts "github.com/vaudience/go-nuts"
)

// TaskFunc is one unit of work against the browsing session
type TaskFunc func(ctx context.Context) error

type job struct {
	ctx  context.Context
	name string
	fn   TaskFunc
	done chan error
}

// Queue runs tasks one at a time in submission order. Enqueuing while the
// queue is idle starts the task right away.
type Queue struct {
	mu      sync.Mutex
	pending []*job
	active  string
	running bool
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue schedules fn and returns a channel that receives its result. A
// task whose context is done before it starts is skipped with the context
// error.
func (q *Queue) Enqueue(ctx context.Context, name string, fn TaskFunc) <-chan error {
	j := &job{ctx: ctx, name: name, fn: fn, done: make(chan error, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, j)
	if !q.running {
		q.running = true
		go q.drain()
	}
	q.mu.Unlock()

	return j.done
}

// Do enqueues fn and waits for its result or for ctx to be done
func (q *Queue) Do(ctx context.Context, name string, fn TaskFunc) error {
	done := q.Enqueue(ctx, name, fn)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the name of the running task, or "" when idle
func (q *Queue) Active() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Pending returns the number of tasks waiting to run
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.active = ""
			q.mu.Unlock()
			return
		}
		j := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.active = j.name
		q.mu.Unlock()

		if err := j.ctx.Err(); err != nil {
			j.done <- err
			continue
		}
		j.done <- run(j)
	}
}

func run(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			nuts.L.Errorf("[Queue] Task %s panicked: %v", j.name, r)
			err = fmt.Errorf("task %s panicked: %v", j.name, r)
		}
	}()
	return j.fn(j.ctx)
}
