package room

import (
	"sync"

	"github.com/sharetube/watchparty/internal/domain"
)

// heartbeat is the handle of a running repeat ticker. Ticks carry the handle
// so the room goroutine can drop ticks of a cancelled one.
type heartbeat struct {
	stop chan struct{}
	once sync.Once
}

func (h *heartbeat) cancel() {
	h.once.Do(func() {
		close(h.stop)
	})
}

// syncHeartbeat keeps the repeat ticker running exactly while the room is
// hosted and playing. An accepted play restarts it.
func (a *actor) syncHeartbeat(cmd domain.Command) {
	if !a.room.IsHosted() || !a.room.Playback().IsPlaying {
		a.stopHeartbeat()
		return
	}

	if _, ok := cmd.(domain.Play); ok || a.heartbeat == nil {
		a.startHeartbeat()
	}
}

func (a *actor) startHeartbeat() {
	a.stopHeartbeat()
	if a.s.stateInterval <= 0 {
		return
	}

	hb := &heartbeat{stop: make(chan struct{})}
	ticker := a.s.clock.NewTicker(a.s.stateInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-hb.stop:
				return
			case <-ticker.Chan():
				select {
				case a.tickCh <- hb:
				case <-hb.stop:
					return
				}
			}
		}
	}()

	a.heartbeat = hb
}

func (a *actor) stopHeartbeat() {
	if a.heartbeat == nil {
		return
	}

	a.heartbeat.cancel()
	a.heartbeat = nil
}
