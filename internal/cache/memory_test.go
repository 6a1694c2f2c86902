package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	if err := m.Set(context.Background(), "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := m.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got != "v" {
		t.Errorf("value = %q, want %q", got, "v")
	}
}

func TestMemory_Miss(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	_, ok, err := m.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestMemory_ExpiredEntryIsMiss(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	if err := m.Set(context.Background(), "k", "v", time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	_, ok, err := m.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected expired entry to be a miss")
	}
}

func TestMemory_Overwrite(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	_ = m.Set(context.Background(), "k", "old", time.Minute)
	_ = m.Set(context.Background(), "k", "new", time.Minute)

	got, ok, _ := m.Get(context.Background(), "k")
	if !ok || got != "new" {
		t.Errorf("value = %q/%v, want %q", got, ok, "new")
	}
}

func TestConnect_EmptyURLFallsBackToMemory(t *testing.T) {
	t.Parallel()

	c := Connect(context.Background(), "", nil)
	if _, ok := c.(*Memory); !ok {
		t.Fatalf("Connect(\"\") = %T, want *Memory", c)
	}
}

func TestConnect_UnreachableRedisFallsBackToMemory(t *testing.T) {
	t.Parallel()

	// Port 1 on localhost is assumed closed; ping fails fast.
	c := Connect(context.Background(), "redis://127.0.0.1:1", nil)
	if _, ok := c.(*Memory); !ok {
		t.Fatalf("Connect(unreachable) = %T, want *Memory", c)
	}
}
