// Package voltage tracks the process-wide best-effort last-known voltage.
package voltage

import "sync"

// State is a mutex-guarded optional integer voltage reading. Construct one with NewState: the zero
// value has a nil mutex, so Get and Set on it panic.
type State struct {
	mutex *sync.Mutex
	value int
	set   bool
}

// NewState returns an initialised, unset State.
func NewState() *State {
	return &State{mutex: new(sync.Mutex)}
}

// Get returns the last committed voltage and whether one has ever been committed.
func (s *State) Get() (v int, ok bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.value, s.set
}

// Set commits a new voltage reading.
func (s *State) Set(v int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.value = v
	s.set = true
}

// GetOrDefault returns the committed voltage, or def if none has ever been committed.
func (s *State) GetOrDefault(def int) int {
	if v, ok := s.Get(); ok {
		return v
	}
	return def
}
