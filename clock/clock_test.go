package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)
	if !c.Now().Equal(start) {
		t.Fatalf("expected %s, got %s", start, c.Now())
	}
	c.Advance(90 * time.Second)
	if want := start.Add(90 * time.Second); !c.Now().Equal(want) {
		t.Fatalf("expected %s, got %s", want, c.Now())
	}
	later := start.Add(24 * time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Fatalf("expected %s, got %s", later, c.Now())
	}
}

func TestTickStopsWhenCallbackDeclines(t *testing.T) {
	calls := 0
	err := Tick(context.Background(), System, time.Millisecond, func(time.Time) bool {
		calls++
		return calls < 3
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestTickReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Tick(ctx, System, time.Hour, func(time.Time) bool {
		t.Fatal("callback should not run")
		return true
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTickPassesClockTime(t *testing.T) {
	frozen := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	var seen time.Time
	_ = Tick(context.Background(), NewManual(frozen), time.Millisecond, func(now time.Time) bool {
		seen = now
		return false
	})
	if !seen.Equal(frozen) {
		t.Fatalf("expected %s, got %s", frozen, seen)
	}
}
