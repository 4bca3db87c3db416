// Package chunksystem implements the chunk registry (SPEC_FULL.md §4.5):
// load-on-demand chunk access, the 1s autosave tick, and garbage collection
// driven by one-shot edge-triggered signals.
package chunksystem

import "sync"

// Signal collapses any number of Notify calls between two reads into one
// "was triggered" boolean, per SPEC_FULL.md §9's "signals as one-shot edge
// triggers" design note (`atomic_swap(flag, false)`).
type Signal struct {
	mu        sync.Mutex
	triggered bool
	wake      chan struct{}
}

func NewSignal() *Signal {
	return &Signal{wake: make(chan struct{}, 1)}
}

// Notify arms the signal. Only the false->true transition wakes a waiter;
// redundant notifications while already armed are free.
func (s *Signal) Notify() {
	s.mu.Lock()
	already := s.triggered
	s.triggered = true
	s.mu.Unlock()

	if !already {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Wake is readable once per armed->cleared cycle; a processor goroutine
// selects on it alongside ctx.Done().
func (s *Signal) Wake() <-chan struct{} {
	return s.wake
}

// CheckAndClear reads and clears the triggered flag atomically, returning
// its prior value.
func (s *Signal) CheckAndClear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.triggered
	s.triggered = false
	return v
}
