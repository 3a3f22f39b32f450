package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestHostLimiter_PacesSameHost(t *testing.T) {
	lim := NewHostLimiter(20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := lim.Wait(ctx, "https://linkareer.com/activity/1"); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	// 1 burst token, then two more at 20/s => at least ~100ms
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("Expected pacing of at least 80ms, got %v", elapsed)
	}
}

func TestHostLimiter_HostsAreIndependent(t *testing.T) {
	lim := NewHostLimiter(1, 1)
	ctx := context.Background()

	start := time.Now()
	if err := lim.Wait(ctx, "https://a.example.com/"); err != nil {
		t.Fatal(err)
	}
	if err := lim.Wait(ctx, "https://b.example.com/"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Different hosts should not wait on each other, took %v", elapsed)
	}
}

func TestHostLimiter_CancelledContext(t *testing.T) {
	lim := NewHostLimiter(0.1, 1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := lim.Wait(ctx, "https://linkareer.com/"); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := lim.Wait(ctx, "https://linkareer.com/"); err == nil {
		t.Error("Expected error from cancelled context")
	}
}

func TestHostLimiter_InvalidURL(t *testing.T) {
	lim := NewHostLimiter(0.1, 1)
	if err := lim.Wait(context.Background(), "://bad"); err != nil {
		t.Errorf("Invalid URL should pass through, got %v", err)
	}
}
