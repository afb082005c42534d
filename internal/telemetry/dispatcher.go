// Package telemetry provides a bounded fire-and-forget task dispatcher for
// best-effort side effects such as token-usage recording. Dispatched tasks
// never block the caller and their failures are logged, never propagated.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// taskTimeout bounds a single background task.
const taskTimeout = 10 * time.Second

// Task is one best-effort side effect.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher drains a bounded queue of best-effort tasks on one background
// goroutine. When the queue is full new tasks are dropped and logged, keeping
// the primary path non-blocking by construction.
type Dispatcher struct {
	log   *slog.Logger
	tasks chan Task

	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
	done     chan struct{}
}

// NewDispatcher creates a dispatcher with the given queue capacity.
func NewDispatcher(log *slog.Logger, capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = 64
	}
	return &Dispatcher{
		log:   log.With("component", "telemetry"),
		tasks: make(chan Task, capacity),
		done:  make(chan struct{}),
	}
}

// Start begins draining the queue. Returns immediately.
func (d *Dispatcher) Start() {
	go d.loop()
}

func (d *Dispatcher) loop() {
	for task := range d.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		if err := task.Run(ctx); err != nil {
			d.log.Warn("Best-effort task failed", "task", task.Name, "error", err.Error())
		}
		cancel()
	}
	close(d.done)
}

// Dispatch enqueues a task without blocking. Returns false when the queue is
// full or the dispatcher has stopped and the task was dropped.
func (d *Dispatcher) Dispatch(name string, run func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.log.Warn("Dispatcher stopped, dropping task", "task", name)
		return false
	}

	select {
	case d.tasks <- Task{Name: name, Run: run}:
		return true
	default:
		d.log.Warn("Telemetry queue full, dropping task", "task", name)
		return false
	}
}

// Stop drains remaining tasks and waits for the loop to exit. Dispatch calls
// after Stop drop their task.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		close(d.tasks)
	})
	<-d.done
}
