package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type statusErr int

func (e statusErr) Error() string      { return "status" }
func (e statusErr) GetStatusCode() int { return int(e) }

func fastConfig(attempts int) Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestDo_DefaultIsSingleAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransportErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDo_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		wantCalls int
	}{
		{503, 3},
		{429, 3},
		{404, 1},
	}

	for _, tt := range tests {
		calls := 0
		_ = Do(context.Background(), fastConfig(3), func() error {
			calls++
			return statusErr(tt.status)
		})
		if calls != tt.wantCalls {
			t.Errorf("status %d: expected %d calls, got %d", tt.status, tt.wantCalls, calls)
		}
	}
}

func TestDo_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, fastConfig(5), func() error {
		calls++
		cancel()
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call after cancel, got %d", calls)
	}
}

func TestBackoff_Capped(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, Multiplier: 2}
	if got := Backoff(0, cfg); got != time.Second {
		t.Errorf("Backoff(0) = %v, want 1s", got)
	}
	if got := Backoff(2, cfg); got != 4*time.Second {
		t.Errorf("Backoff(2) = %v, want 4s", got)
	}
	if got := Backoff(10, cfg); got != 5*time.Second {
		t.Errorf("Backoff(10) = %v, want 5s", got)
	}
}
