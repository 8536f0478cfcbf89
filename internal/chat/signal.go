// ABOUTME: Coalescing change signal shared by stateful chat components
// ABOUTME: Subscribers receive at most one pending wake-up per burst of changes

package chat

import "sync"

// Signal fans a "something changed" event out to subscribers without blocking.
type Signal struct {
	mu   sync.Mutex
	subs []chan struct{}
}

// Subscribe returns a channel that receives after each change. Bursts of
// changes collapse into one pending value.
func (s *Signal) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.subs = append(s.subs, ch)
	return ch
}

// Notify wakes every subscriber.
func (s *Signal) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
