package session

import (
	"sync"
	"testing"
)

func TestMemoryStoreDefaultsToMainMenu(t *testing.T) {
	s := NewMemoryStore()
	if got := s.Mode("u1"); got != ModeMainMenu {
		t.Errorf("unseen user mode = %q", got)
	}

	s.SetMode("u1", ModeForex)
	if got := s.Mode("u1"); got != ModeForex {
		t.Errorf("mode = %q", got)
	}

	s.Delete("u1")
	if got := s.Mode("u1"); got != ModeMainMenu {
		t.Errorf("deleted user mode = %q", got)
	}
}

func TestLocksSerializePerUser(t *testing.T) {
	locks := NewLocks()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := locks.Lock("u1")
			defer unlock()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(order) != 20 {
		t.Errorf("expected 20 entries, got %d", len(order))
	}

	// Distinct users must not block each other.
	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	unlockB()
	unlockA()
}
