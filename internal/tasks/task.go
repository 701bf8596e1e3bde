package tasks

import (
	"context"
	"sync"

	"roster/pkg/logging"
)

// Status describes where a task is in its own small state machine.
type Status int

const (
	StatusPending Status = iota
	StatusResolved
	StatusCancelled
)

// String makes Status satisfy the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the outcome an asynchronous hook eventually produces.
// Activate mirrors the synchronous init contract: true drives the service
// up, false parks it down without error. For deinit hooks Activate is
// ignored.
type Result struct {
	Activate bool
	Err      error
}

// Task tracks one in-flight asynchronous hook. The hook body runs on its
// own goroutine and deposits a single Result into the task's slot; the
// orchestrator polls the slot once per cycle and never blocks on it.
//
// Cancellation is cooperative and advisory: Cancel flags the task and
// cancels its context, but the body is allowed to run to completion. A
// result arriving after cancellation is discarded by the poller.
type Task struct {
	mu       sync.Mutex
	status   Status
	result   Result
	resolved bool

	cancel context.CancelFunc
}

// Fn is the body of an asynchronous hook.
type Fn func(ctx context.Context) (bool, error)

// Go spawns fn on its own goroutine and returns the tracking handle.
// The context passed to fn is cancelled when the task is cancelled, giving
// well-behaved bodies a chance to bail out early.
func Go(fn Fn) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{cancel: cancel}
	go func() {
		activate, err := fn(ctx)
		t.mu.Lock()
		defer t.mu.Unlock()
		t.result = Result{Activate: activate, Err: err}
		t.resolved = true
		if t.status == StatusPending {
			t.status = StatusResolved
		}
	}()
	return t
}

// Resolved returns a task that is already complete with the given result.
// Used in tests and for hooks that decide synchronously after all.
func Resolved(activate bool, err error) *Task {
	return &Task{
		status:   StatusResolved,
		result:   Result{Activate: activate, Err: err},
		resolved: true,
		cancel:   func() {},
	}
}

// Poll checks the result slot without blocking. It returns the result and
// true exactly once, on the first poll after the body finished. A cancelled
// task never yields a result: its eventual completion is discarded.
func (t *Task) Poll() (Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.status {
	case StatusResolved:
		if !t.resolved {
			return Result{}, false
		}
		t.resolved = false
		return t.result, true
	case StatusCancelled:
		if t.resolved {
			// Completion arrived after cancellation; drop it.
			t.resolved = false
			logging.Debug("Tasks", "Discarding result of cancelled task")
		}
		return Result{}, false
	default:
		return Result{}, false
	}
}

// Cancel flags the task so that its eventual result is discarded, and
// cancels the context handed to the body. It does not wait for the body.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusCancelled {
		return
	}
	t.status = StatusCancelled
	t.cancel()
}

// Status returns the task's current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}
