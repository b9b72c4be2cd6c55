// Package worker runs submitted tasks one at a time, in submission order.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vmunix/filtarr/internal/metrics"
)

// ErrClosed is returned by Submit once the queue has shut down.
var ErrClosed = errors.New("worker queue closed")

// Task is a unit of work. Run receives the worker's context, which is
// canceled on shutdown.
type Task struct {
	ID  string
	Run func(ctx context.Context)
}

// Queue is an unbounded FIFO drained by a single consumer.
type Queue struct {
	mu     sync.Mutex
	tasks  []Task
	busy   bool
	closed bool
	notify chan struct{}
	log    *slog.Logger
}

// New creates an empty queue.
func New(log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		notify: make(chan struct{}, 1),
		log:    log.With("component", "worker"),
	}
}

// Submit appends a task. It never blocks on the consumer.
func (q *Queue) Submit(t Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.tasks = append(q.tasks, t)
	depth := len(q.tasks)
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	q.log.Debug("task queued", "task", t.ID, "depth", depth)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of tasks waiting to start.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Busy reports whether a task is running.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// Name returns the component name for logging.
func (q *Queue) Name() string {
	return "worker"
}

// Start consumes tasks until ctx is canceled. Tasks still waiting at that
// point are dropped. Start must only be called once.
func (q *Queue) Start(ctx context.Context) error {
	q.log.Info("worker started")
	for {
		t, ok := q.next()
		if !ok {
			select {
			case <-q.notify:
				continue
			case <-ctx.Done():
				q.shutdown()
				return ctx.Err()
			}
		}

		if ctx.Err() != nil {
			q.requeueFront(t)
			q.shutdown()
			return ctx.Err()
		}
		q.execute(ctx, t)
	}
}

func (q *Queue) next() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return Task{}, false
	}
	t := q.tasks[0]
	q.tasks[0] = Task{}
	q.tasks = q.tasks[1:]
	q.busy = true
	metrics.QueueDepth.Set(float64(len(q.tasks)))
	return t, true
}

func (q *Queue) requeueFront(t Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append([]Task{t}, q.tasks...)
	q.busy = false
}

func (q *Queue) execute(ctx context.Context, t Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("task panicked", "task", t.ID, "panic", r)
		}
		q.mu.Lock()
		q.busy = false
		q.mu.Unlock()
		q.log.Debug("task finished", "task", t.ID, "duration_ms", time.Since(start).Milliseconds())
	}()
	t.Run(ctx)
}

func (q *Queue) shutdown() {
	q.mu.Lock()
	dropped := len(q.tasks)
	q.tasks = nil
	q.closed = true
	q.mu.Unlock()

	metrics.QueueDepth.Set(0)
	if dropped > 0 {
		q.log.Warn("worker stopped, dropping pending tasks", "dropped", dropped)
		return
	}
	q.log.Info("worker stopped")
}
