package safety

import (
	"context"
	"sync"
)

// Outcome is how a generation task ended.
type Outcome int

const (
	// OutcomePending means the task has not finished.
	OutcomePending Outcome = iota
	// OutcomeApplied means the result replaced the workflow's records.
	OutcomeApplied
	// OutcomeFailed means the workflow's error was set.
	OutcomeFailed
	// OutcomeDiscarded means the task was cancelled or superseded and left
	// state untouched.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "pending"
	}
}

// Task is the handle of one running generation. Callers may ignore it; state
// is observed through the orchestrator.
type Task struct {
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	outcome Outcome
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(o Outcome) {
	t.once.Do(func() {
		t.mu.Lock()
		t.outcome = o
		t.mu.Unlock()
		close(t.done)
	})
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.Outcome(), nil
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

// Outcome returns how the task ended, or OutcomePending.
func (t *Task) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// joinTasks returns a task that finishes when all of tasks have. It fails if
// any of them failed, else it is discarded if any was discarded.
func joinTasks(tasks ...*Task) *Task {
	joined := newTask()
	go func() {
		outcome := OutcomeApplied
		for _, t := range tasks {
			<-t.Done()
			switch t.Outcome() {
			case OutcomeFailed:
				outcome = OutcomeFailed
			case OutcomeDiscarded:
				if outcome != OutcomeFailed {
					outcome = OutcomeDiscarded
				}
			}
		}
		joined.finish(outcome)
	}()
	return joined
}
