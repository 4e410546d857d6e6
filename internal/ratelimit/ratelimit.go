// Package ratelimit provides sliding-window limiters keyed by arbitrary strings,
// e.g. "contact:<actor>:<peer>".
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter decides whether one more event for key fits into the window.
// An allowed call is counted; a rejected call is not.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Key joins parts into a limiter key.
func Key(scope string, ids ...int64) string {
	key := scope
	for _, id := range ids {
		key += fmt.Sprintf(":%d", id)
	}
	return key
}

// SlidingWindow is a process-local sliding-window log limiter.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewSlidingWindow allows at most limit events per key within any window-long interval.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

func (l *SlidingWindow) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.trim(l.hits[key], now)
	if len(hits) >= l.limit {
		l.hits[key] = hits
		return false, nil
	}

	l.hits[key] = append(hits, now)
	return true, nil
}

// Prune drops keys whose events all fell out of the window and returns how many were dropped.
func (l *SlidingWindow) Prune() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, hits := range l.hits {
		hits = l.trim(hits, now)
		if len(hits) == 0 {
			delete(l.hits, key)
			removed++
			continue
		}
		l.hits[key] = hits
	}
	return removed
}

// trim keeps events strictly newer than now-window; hits are in ascending order.
func (l *SlidingWindow) trim(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
