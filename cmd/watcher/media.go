package main

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// simulatedMedia is a player whose position advances with the clock while
// playing. Loading a source is instant, so it is always ready.
type simulatedMedia struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	src       string
	playing   bool
	base      float64
	startedAt time.Time
}

func newSimulatedMedia(clock clockwork.Clock) *simulatedMedia {
	return &simulatedMedia{clock: clock}
}

func (m *simulatedMedia) Load(src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.src = src
	m.base = 0
	m.playing = false
	return nil
}

func (m *simulatedMedia) Ready() bool {
	return true
}

func (m *simulatedMedia) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.position()
}

func (m *simulatedMedia) position() float64 {
	if !m.playing {
		return m.base
	}

	return m.base + m.clock.Since(m.startedAt).Seconds()
}

func (m *simulatedMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.playing
}

func (m *simulatedMedia) Seek(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.base = t
	m.startedAt = m.clock.Now()
	return nil
}

func (m *simulatedMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.base = m.position()
	m.startedAt = m.clock.Now()
	m.playing = true
	return nil
}

func (m *simulatedMedia) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.base = m.position()
	m.playing = false
	return nil
}
