package testutils

import "sync"

// ManualExecutor queues posted tasks until the test runs them, making
// executor-driven code deterministic and single threaded.
type ManualExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

// NewManualExecutor creates an empty executor
func NewManualExecutor() *ManualExecutor {
	return &ManualExecutor{}
}

// Post enqueues task
func (e *ManualExecutor) Post(task func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
}

// Pending returns the number of queued tasks
func (e *ManualExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// RunOne runs the oldest queued task and reports whether there was one
func (e *ManualExecutor) RunOne() bool {
	e.mu.Lock()
	if len(e.tasks) == 0 {
		e.mu.Unlock()
		return false
	}
	task := e.tasks[0]
	e.tasks[0] = nil
	e.tasks = e.tasks[1:]
	e.mu.Unlock()

	task()
	return true
}

// Drain runs tasks until the queue is empty, including tasks posted while
// draining, and returns how many ran.
func (e *ManualExecutor) Drain() int {
	n := 0
	for e.RunOne() {
		n++
	}
	return n
}

// DrainAll drains every executor until all of them are idle
func DrainAll(executors ...*ManualExecutor) {
	for {
		ran := 0
		for _, e := range executors {
			ran += e.Drain()
		}
		if ran == 0 {
			return
		}
	}
}
