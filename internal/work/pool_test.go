package work

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmit_RunsTask(t *testing.T) {
	t.Parallel()

	p := New(2, 4, nil)
	defer p.Close()

	done := make(chan struct{})
	if err := p.Submit(func(context.Context) { close(done) }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestSubmit_QueueFull(t *testing.T) {
	t.Parallel()

	// Queue capacity is clamped to one slot, so the seed submit must succeed
	// even before the worker goroutine has been scheduled.
	p := New(1, 0, nil)
	block := make(chan struct{})
	defer func() {
		close(block)
		p.Close()
	}()

	if err := p.Submit(func(context.Context) { <-block }); err != nil {
		t.Fatalf("seed submit: %v", err)
	}

	// Once the worker holds the blocker, one filler occupies the slot and
	// every submit after that must be rejected.
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := p.Submit(func(context.Context) {})
		if errors.Is(err, ErrQueueFull) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("never saw ErrQueueFull")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmit_AfterClose(t *testing.T) {
	t.Parallel()

	p := New(1, 4, nil)
	p.Close()

	if err := p.Submit(func(context.Context) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestClose_WaitsForQueuedTasks(t *testing.T) {
	t.Parallel()

	p := New(1, 8, nil)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if err := p.Submit(func(context.Context) {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	p.Close()
	if got := ran.Load(); got != 5 {
		t.Errorf("ran = %d, want 5 (Close must drain the queue)", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	p := New(1, 1, nil)
	p.Close()
	p.Close() // must not panic
}

func TestWorker_RecoversPanic(t *testing.T) {
	t.Parallel()

	p := New(1, 4, nil)
	defer p.Close()

	if err := p.Submit(func(context.Context) { panic("boom") }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The worker must survive the panic and keep serving tasks.
	done := make(chan struct{})
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := p.Submit(func(context.Context) { close(done) })
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Submit after panic: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestDepth(t *testing.T) {
	t.Parallel()

	p := New(1, 8, nil)
	block := make(chan struct{})
	defer func() {
		close(block)
		p.Close()
	}()

	if err := p.Submit(func(context.Context) { <-block }); err != nil {
		t.Fatalf("seed submit: %v", err)
	}

	// Wait until the worker holds the blocker, then queue two more.
	deadline := time.Now().Add(2 * time.Second)
	for p.Depth() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up blocking task")
		}
		time.Sleep(5 * time.Millisecond)
	}

	for i := 0; i < 2; i++ {
		if err := p.Submit(func(context.Context) {}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	if got := p.Depth(); got != 2 {
		t.Errorf("Depth() = %d, want 2", got)
	}
}
