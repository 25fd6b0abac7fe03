package client

import "sync"

type fakeMedia struct {
	mu sync.Mutex
	// asyncLoad makes Load behave like a real element: not ready, rewound
	// and paused until the new source is buffered.
	asyncLoad bool
	loads     []string
	ready     bool
	position  float64
	paused    bool
	refuse    int
	seeks     []float64
	plays     int
}

func newFakeMedia(position float64) *fakeMedia {
	return &fakeMedia{ready: true, position: position, paused: true}
}

func (m *fakeMedia) Load(src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, src)
	if m.asyncLoad {
		m.ready = false
		m.position = 0
		m.paused = true
	}
	return nil
}

func (m *fakeMedia) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *fakeMedia) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *fakeMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *fakeMedia) Seek(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, t)
	m.position = t
	return nil
}

func (m *fakeMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	if m.refuse > 0 {
		m.refuse--
		return ErrPlaybackRefused
	}
	m.paused = false
	return nil
}

func (m *fakeMedia) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	return nil
}

func (m *fakeMedia) setReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}
