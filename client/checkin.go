package client

import "sync"

// CheckInMode remembers, per event, whether the door staff view is on.
// It is purely local.
type CheckInMode struct {
	mu sync.Mutex
	on map[string]bool
}

func (m *CheckInMode) Enabled(eventID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on[eventID]
}

func (m *CheckInMode) Set(eventID string, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.on == nil {
		m.on = map[string]bool{}
	}
	if on {
		m.on[eventID] = true
	} else {
		delete(m.on, eventID)
	}
}

// Toggle flips the mode for eventID and returns the new value.
func (m *CheckInMode) Toggle(eventID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.on == nil {
		m.on = map[string]bool{}
	}
	next := !m.on[eventID]
	if next {
		m.on[eventID] = true
	} else {
		delete(m.on, eventID)
	}
	return next
}
