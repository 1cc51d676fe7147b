package voltage

import (
	"sync"
	"testing"
)

func TestStateUnsetByDefault(t *testing.T) {
	s := NewState()
	if _, ok := s.Get(); ok {
		t.Fatal("freshly constructed state must report unset")
	}
	if v := s.GetOrDefault(42); v != 42 {
		t.Fatalf("expected default 42, got %d", v)
	}
}

func TestStateSetThenGet(t *testing.T) {
	s := NewState()
	s.Set(1500)
	v, ok := s.Get()
	if !ok || v != 1500 {
		t.Fatalf("expected (1500, true), got (%d, %v)", v, ok)
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			s.Set(v)
		}(i)
	}
	wg.Wait()
	if _, ok := s.Get(); !ok {
		t.Fatal("expected a value to be set after concurrent writers")
	}
}
