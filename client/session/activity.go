package session

import "sync"

// Signal classifies a user-interaction event observed by the host
// application.
type Signal int

const (
	SignalPointerDown Signal = iota
	SignalPointerMove
	SignalKeyPress
	SignalScroll
	SignalTouch
	SignalClick
)

// ActivityMonitor forwards qualifying interaction signals into the session
// manager's activity clock. It is an explicit subscribe/unsubscribe object
// scoped to one session: attached when the session becomes live, detached
// on logout so no callback outlives the session that registered it.
//
// Observe may fire at very high frequency (pointer moves); the sink is a
// single atomic timestamp write, so no throttling is applied here. If a
// caller throttles upstream it must still deliver the most recent event.
type ActivityMonitor struct {
	mu   sync.RWMutex
	sink func()
}

// NewActivityMonitor returns a detached monitor.
func NewActivityMonitor() *ActivityMonitor {
	return &ActivityMonitor{}
}

// Observe reports one interaction signal. Signals observed while detached
// are dropped.
func (m *ActivityMonitor) Observe(sig Signal) {
	switch sig {
	case SignalPointerDown, SignalPointerMove, SignalKeyPress, SignalScroll, SignalTouch, SignalClick:
	default:
		return
	}
	m.mu.RLock()
	sink := m.sink
	m.mu.RUnlock()
	if sink != nil {
		sink()
	}
}

// Attached reports whether the monitor currently forwards signals.
func (m *ActivityMonitor) Attached() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sink != nil
}

func (m *ActivityMonitor) attach(sink func()) {
	m.mu.Lock()
	m.sink = sink
	m.mu.Unlock()
}

func (m *ActivityMonitor) detach() {
	m.mu.Lock()
	m.sink = nil
	m.mu.Unlock()
}
