package reconcile

import (
	"sync"

	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
)

var _ model.ConnectivityMonitor = (*Signal)(nil)

// Signal is a channel-fed connectivity monitor. The surrounding platform
// feeds transitions in through Set; the reconciler consumes them through
// the ConnectivityMonitor interface. Tests drive it with synthetic events.
type Signal struct {
	mu     sync.Mutex
	online bool
	ch     chan bool
}

// NewSignal creates a Signal with the given initial state.
func NewSignal(online bool) *Signal {
	return &Signal{
		online: online,
		ch:     make(chan bool, 16),
	}
}

// Online reports the current connectivity state.
func (s *Signal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set records a connectivity transition. Repeated identical states are
// ignored; if the change buffer is full the event is dropped, since only
// the latest state matters to the consumer.
func (s *Signal) Set(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.online == online {
		return
	}
	s.online = online

	select {
	case s.ch <- online:
	default:
	}
}

// Changes delivers connectivity transitions.
func (s *Signal) Changes() <-chan bool {
	return s.ch
}
