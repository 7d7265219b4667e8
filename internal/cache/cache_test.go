package cache

import (
	"testing"
	"time"
)

func TestManager_ClearAll(t *testing.T) {
	a := NewMemo[int]("a", 20, 15)
	b := NewMemo[string]("b", 20, 15)
	a.Set("x", 1)
	a.Set("y", 2)
	b.Set("z", "z")

	m := NewManager(nil)
	m.Register(a, b)

	if n := m.ClearAll(); n != 3 {
		t.Errorf("ClearAll() = %d, want 3", n)
	}
	if a.Len() != 0 || b.Len() != 0 {
		t.Errorf("memos not empty: %d, %d", a.Len(), b.Len())
	}
}

func TestManager_PeriodicClear(t *testing.T) {
	a := NewMemo[int]("a", 20, 15)
	a.Set("x", 1)

	m := NewManager(nil)
	m.Register(a)
	m.StartCleanup(10 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for a.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("memo was not cleared by the manager")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	done := make(chan struct{})
	go func() {
		m.Stop()
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running cleanup")
	}
}
