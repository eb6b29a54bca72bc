package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	calls := 0

	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1 for a burst", calls)
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var mu sync.Mutex
	calls := 0
	d.Trigger(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	d.Stop()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", calls)
	}
}

func TestWatcherInvalidatesOnBundleReplace(t *testing.T) {
	dir := t.TempDir()
	writer, err := New(&Config{Dir: dir})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	reader, err := New(&Config{Dir: dir, Cache: true})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := writer.Write(testRules()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if _, err := reader.Load(); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	w, err := NewBundleWatcher(reader)
	if err != nil {
		t.Fatalf("NewBundleWatcher returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Watch(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)

	// Out-of-process replacement: one rule instead of three.
	if _, err := writer.Write(testRules()[:1]); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		bundle, err := reader.Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if len(bundle.Rules) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cache never invalidated after bundle replacement")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := <-watchErr; err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
}

func TestWatcherRejectsDoubleStart(t *testing.T) {
	s := testStore(t, true)

	w, err := NewBundleWatcher(s)
	if err != nil {
		t.Fatalf("NewBundleWatcher returned error: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)

	time.Sleep(20 * time.Millisecond)

	if err := w.Watch(ctx); err == nil {
		t.Error("second Watch must fail while the first is running")
	}
}
