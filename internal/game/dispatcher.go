package game

import (
	"context"
	"sync"
)

// Dispatcher serializes all gameplay state changes onto a single
// goroutine through a bounded task queue. Network goroutines post
// closures and may block briefly when the queue is full; ordering per
// producer is preserved by the channel.
type Dispatcher struct {
	tasks chan func()

	done     chan struct{}
	doneOnce sync.Once
}

// NewDispatcher creates a dispatcher with the given queue depth.
func NewDispatcher(depth int) *Dispatcher {
	return &Dispatcher{
		tasks: make(chan func(), depth),
		done:  make(chan struct{}),
	}
}

// Run consumes tasks until the context is cancelled. It must be called
// exactly once; every task runs on this goroutine.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.doneOnce.Do(func() { close(d.done) })
	for {
		select {
		case task := <-d.tasks:
			task()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Add enqueues a task, blocking while the queue is full. Tasks posted
// after shutdown are dropped.
func (d *Dispatcher) Add(task func()) {
	select {
	case <-d.done:
	case d.tasks <- task:
	}
}
