package utils

import (
	"testing"
	"time"
)

func TestSlidingWindowCountsWithinWindow(t *testing.T) {
	w := NewSlidingWindow(10 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := w.Add(base); got != 1 {
		t.Fatalf("got %d", got)
	}
	if got := w.Add(base.Add(time.Second)); got != 2 {
		t.Fatalf("got %d", got)
	}
	if got := w.Count(base.Add(2 * time.Second)); got != 2 {
		t.Fatalf("got %d", got)
	}
}

func TestSlidingWindowPrunesOldHits(t *testing.T) {
	w := NewSlidingWindow(10 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	w.Add(base)
	w.Add(base.Add(time.Second))
	if got := w.Add(base.Add(15 * time.Second)); got != 1 {
		t.Fatalf("stale hits must be pruned, got %d", got)
	}
}
