package http

import (
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	rl := newRateLimiter(3)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if ok, _ := rl.allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, retry := rl.allow("10.0.0.1")
	if ok {
		t.Fatal("fourth request in the window should be rejected")
	}
	if retry != time.Minute {
		t.Errorf("retry = %v, want 1m", retry)
	}

	if ok, _ := rl.allow("10.0.0.2"); !ok {
		t.Error("other clients have their own window")
	}

	now = now.Add(40 * time.Second)
	if _, retry := rl.allow("10.0.0.1"); retry != 20*time.Second {
		t.Errorf("retry = %v, want 20s", retry)
	}

	now = now.Add(20 * time.Second)
	if ok, _ := rl.allow("10.0.0.1"); !ok {
		t.Error("a new window should reset the count")
	}
}

func TestRateLimiter_CleanupStaleEntries(t *testing.T) {
	now := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	rl := newRateLimiter(10)
	rl.now = func() time.Time { return now }

	rl.allow("old")
	now = now.Add(9 * time.Minute)
	rl.allow("recent")
	now = now.Add(2 * time.Minute)

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := rl.clients["recent"]; !ok {
		t.Error("recent client should be kept")
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := newRateLimiter(1)
	rl.stop()
	rl.stop()
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "1"},
		{300 * time.Millisecond, "1"},
		{time.Second, "1"},
		{1500 * time.Millisecond, "2"},
		{time.Minute, "60"},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := retryAfter(tt.in); got != tt.want {
				t.Errorf("retryAfter(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
