package room

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// registry owns the live rooms. A room is created by the first join to an
// unknown id and removed by its own goroutine once it is empty.
type registry struct {
	rooms map[string]*actor
	mu    sync.Mutex
}

func newRegistry() *registry {
	return &registry{
		rooms: make(map[string]*actor),
	}
}

// getOrCreate never returns two different actors for the same id while the
// first one is alive.
func (r *registry) getOrCreate(roomID string, create func() *actor) (*actor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.rooms[roomID]; ok {
		return a, false
	}

	a := create()
	r.rooms[roomID] = a
	return a, true
}

func (r *registry) get(roomID string) (*actor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rooms[roomID]
	return a, ok
}

// remove deletes roomID only if it still maps to a.
func (r *registry) remove(roomID string, a *actor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomID] != a {
		return false
	}

	delete(r.rooms, roomID)
	return true
}

func (r *registry) ids() []string {
	r.mu.Lock()
	ids := maps.Keys(r.rooms)
	r.mu.Unlock()

	slices.Sort(ids)
	return ids
}

func (r *registry) all() []*actor {
	r.mu.Lock()
	defer r.mu.Unlock()

	return maps.Values(r.rooms)
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms)
}
