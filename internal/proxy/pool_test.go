package proxy

import (
	"testing"
)

func TestPool(t *testing.T) {
	pool := NewPool([]string{"p1", "p2", "p3"})

	// Test rotation
	for _, want := range []string{"p1", "p2", "p3", "p1"} {
		if p := pool.Next(); p != want {
			t.Errorf("Expected %s, got %s", want, p)
		}
	}

	pool.MarkFailed("p2")

	// Current index is at p2 (after returning p1)
	if p := pool.Next(); p != "p3" {
		t.Errorf("Expected p3 (skipping p2), got %s", p)
	}
	if p := pool.Next(); p != "p1" {
		t.Errorf("Expected p1, got %s", p)
	}
	if p := pool.Next(); p != "p3" {
		t.Errorf("Expected p3, got %s", p)
	}

	pool.MarkHealthy("p2")

	if p := pool.Next(); p != "p1" {
		t.Errorf("Expected p1, got %s", p)
	}
	if p := pool.Next(); p != "p2" {
		t.Errorf("Expected p2, got %s", p)
	}
}

func TestPool_AllFailed(t *testing.T) {
	pool := NewPool([]string{"p1", "p2"})
	pool.MarkFailed("p1")
	pool.MarkFailed("p2")

	if p := pool.Next(); p == "" {
		t.Error("Expected a proxy even when all failed")
	}
}

func TestPool_Empty(t *testing.T) {
	if p := NewPool(nil).Next(); p != "" {
		t.Errorf("Expected empty proxy, got %q", p)
	}
}

func TestParseList(t *testing.T) {
	got, err := ParseList(" 10.0.0.1:3128, ,socks5://10.0.0.2:1080")
	if err != nil {
		t.Fatalf("ParseList failed: %v", err)
	}
	want := []string{"http://10.0.0.1:3128", "socks5://10.0.0.2:1080"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %s, got %s", want[i], got[i])
		}
	}

	if _, err := ParseList("ftp://10.0.0.1"); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}
