package game

import (
	"context"
	"testing"
	"time"
)

func TestDispatcherRunsTasksInOrder(t *testing.T) {
	d := NewDispatcher(16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()

	var order []int
	ran := make(chan struct{})
	for i := range 5 {
		d.Add(func() { order = append(order, i) })
	}
	d.Add(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not run")
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("task order = %v", order)
		}
	}

	cancel()
	<-done
}

func TestDispatcherDropsTasksAfterShutdown(t *testing.T) {
	d := NewDispatcher(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()
	cancel()
	<-done

	// Must not block or panic.
	d.Add(func() { t.Error("task ran after shutdown") })
}
