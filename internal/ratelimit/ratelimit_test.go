package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSlidingWindowAllowsUpToLimit(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l := NewSlidingWindow(3, time.Hour)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "contact:1:2")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !ok {
			t.Fatalf("expected call %d to be allowed", i+1)
		}
		now = now.Add(time.Minute)
	}

	ok, _ := l.Allow(ctx, "contact:1:2")
	if ok {
		t.Fatal("expected fourth call within window to be rejected")
	}

	ok, _ = l.Allow(ctx, "contact:1:3")
	if !ok {
		t.Fatal("expected a different peer to have its own window")
	}
}

func TestSlidingWindowSlides(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	now := start
	l := NewSlidingWindow(2, time.Hour)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	l.Allow(ctx, "k")
	now = start.Add(30 * time.Minute)
	l.Allow(ctx, "k")

	now = start.Add(59 * time.Minute)
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatal("expected rejection while both events are in the window")
	}

	// the first event leaves the window exactly one hour after it happened
	now = start.Add(time.Hour)
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatal("expected the oldest event to have slid out")
	}
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatal("expected rejection after refilling the window")
	}
}

func TestSlidingWindowPrune(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l := NewSlidingWindow(1, time.Minute)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	l.Allow(ctx, "a")
	l.Allow(ctx, "b")

	now = now.Add(30 * time.Second)
	l.Allow(ctx, "c")

	now = now.Add(45 * time.Second)
	if removed := l.Prune(); removed != 2 {
		t.Fatalf("expected 2 idle keys pruned, got %d", removed)
	}
	if _, ok := l.hits["c"]; !ok {
		t.Fatal("expected key with a live event to survive")
	}
}

func TestSlidingWindowConcurrent(t *testing.T) {
	l := NewSlidingWindow(10, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(ctx, "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Fatalf("expected exactly 10 allowed, got %d", allowed)
	}
}

func TestKey(t *testing.T) {
	if got := Key("contact", 4, 9); got != "contact:4:9" {
		t.Fatalf("unexpected key %q", got)
	}
}
