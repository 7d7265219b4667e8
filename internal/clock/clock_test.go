package clock

import (
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	c.Advance(48 * time.Hour)
	if got := c.Now(); got.Day() != 17 {
		t.Errorf("after Advance day = %d, want 17", got.Day())
	}

	next := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	c.Set(next)
	if got := c.Now(); !got.Equal(next) {
		t.Errorf("after Set Now() = %v, want %v", got, next)
	}
}

func TestSystem(t *testing.T) {
	var c Clock = System{}
	before := time.Now()
	got := c.Now()
	if got.Before(before) {
		t.Errorf("System.Now() = %v, earlier than %v", got, before)
	}
}
