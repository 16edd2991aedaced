// Package loop provides the single logical execution context that owns
// every scene mutation. Work produced elsewhere (asset fetch completions,
// published commands) is posted as a task and runs when the interaction
// loop drains the queue.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrDisposed is matched by every DisposedContextError.
var ErrDisposed = errors.New("loop: context disposed")

// DisposedContextError reports work that arrived after teardown. It is
// dropped, never fatal.
type DisposedContextError struct {
	Op string
}

func (e *DisposedContextError) Error() string {
	if e.Op == "" {
		return ErrDisposed.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, ErrDisposed)
}

// Is makes errors.Is(err, ErrDisposed) hold.
func (e *DisposedContextError) Is(target error) bool {
	return target == ErrDisposed
}

// Task is a unit of work run on the loop.
type Task func()

type entry struct {
	name string
	run  Task
}

// Queue is a FIFO of tasks. Post is safe from any goroutine; Drain and Run
// must be called from the single loop goroutine.
type Queue struct {
	mu     sync.Mutex
	tasks  []entry
	closed bool
	wake   chan struct{}
	log    *zap.Logger
}

// New returns an open queue. A nil logger disables logging.
func New(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		wake: make(chan struct{}, 1),
		log:  logger,
	}
}

// Post appends a task. After Close it returns a *DisposedContextError and
// the task is discarded.
func (q *Queue) Post(name string, t Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.Debug("dropping task after dispose", zap.String("task", name))
		return &DisposedContextError{Op: name}
	}
	q.tasks = append(q.tasks, entry{name: name, run: t})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Closed reports whether Close was called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drain runs pending tasks in FIFO order until the queue is empty,
// including tasks posted by the tasks themselves, and returns how many ran.
// A panicking task is logged and skipped.
func (q *Queue) Drain() int {
	ran := 0
	for {
		q.mu.Lock()
		if q.closed || len(q.tasks) == 0 {
			q.mu.Unlock()
			return ran
		}
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()

		for i, e := range batch {
			if q.Closed() {
				q.log.Debug("dropping queued tasks after dispose", zap.Int("count", len(batch)-i))
				return ran
			}
			q.runOne(e)
			ran++
		}
	}
}

func (q *Queue) runOne(e entry) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("task panicked", zap.String("task", e.name), zap.Any("panic", r))
		}
	}()
	e.run()
}

// Run drains the queue each time work is posted until ctx is done or the
// queue is closed.
func (q *Queue) Run(ctx context.Context) error {
	for {
		q.Drain()
		if q.Closed() {
			return &DisposedContextError{Op: "run"}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}
	}
}

// Close disposes the queue. Pending tasks are dropped and later posts fail.
// Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := len(q.tasks)
	q.tasks = nil
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	if dropped > 0 {
		q.log.Debug("queue closed with pending tasks", zap.Int("dropped", dropped))
	}
}
