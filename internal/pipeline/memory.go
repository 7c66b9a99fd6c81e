package pipeline

import (
	"sync"
)

// Memory remembers which plates were seen during the last N frames, so that a
// plate standing in front of the camera is reported once instead of on every
// frame.
type Memory struct {
	mu       sync.Mutex
	window   int
	frame    int
	lastSeen map[string]int
}

func NewMemory(window int) *Memory {
	if window <= 0 {
		window = 1
	}
	return &Memory{window: window, lastSeen: make(map[string]int)}
}

// NextFrame advances the frame counter and forgets plates that fell out of
// the window.
func (m *Memory) NextFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frame++
	for p, seen := range m.lastSeen {
		if m.frame-seen >= m.window {
			delete(m.lastSeen, p)
		}
	}
}

// Seen records the plate in the current frame and reports whether this is its
// first sighting within the window.
func (m *Memory) Seen(plate string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, known := m.lastSeen[plate]
	m.lastSeen[plate] = m.frame
	return !known
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lastSeen)
}
