package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestBackoffNextGrowsAndCaps(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 8 * time.Second, Factor: 2} // no jitter
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 8 * time.Second},
		{10, 8 * time.Second},
	}
	for _, tt := range tests {
		if got := b.Next(tt.attempt); got != tt.want {
			t.Errorf("Next(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffJitterStaysInBounds(t *testing.T) {
	b := Backoff{Base: time.Second, Max: time.Minute, Factor: 2, Jitter: 0.2}
	for i := 0; i < 100; i++ {
		d := b.Next(2) // nominal 4s
		if d < 3200*time.Millisecond || d > 4800*time.Millisecond {
			t.Fatalf("Next(2) = %v, outside ±20%% of 4s", d)
		}
	}
}

func TestBackoffZeroValueUsesDefaults(t *testing.T) {
	var b Backoff
	if got := b.Next(0); got != 5*time.Second {
		t.Errorf("zero-value Next(0) = %v, want 5s", got)
	}
	if got := b.Next(1); got != 10*time.Second {
		t.Errorf("zero-value Next(1) = %v, want 10s", got)
	}
}

func TestBackoffSleepHonorsCancellation(t *testing.T) {
	b := Backoff{Base: time.Minute, Factor: 2}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	if b.Sleep(ctx, 0) {
		t.Error("Sleep should report false on cancellation")
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly after cancel")
	}
}

func TestBackoffSleepCompletes(t *testing.T) {
	b := Backoff{Base: time.Millisecond, Factor: 2}
	if !b.Sleep(context.Background(), 0) {
		t.Error("Sleep should report true when the delay elapses")
	}
}
