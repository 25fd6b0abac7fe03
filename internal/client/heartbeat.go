package client

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultHeartbeatInterval = time.Second

type Pinger interface {
	Ping(t float64, playing bool) error
}

type HeartbeatConfig struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Heartbeat sends the host's local position on every tick while started.
// Start and Stop are idempotent; Stop returns once no further ping can be sent.
type Heartbeat struct {
	pinger   Pinger
	media    MediaElement
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewHeartbeat(pinger Pinger, media MediaElement, cfg *HeartbeatConfig) *Heartbeat {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Heartbeat{
		pinger:   pinger,
		media:    media,
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stop != nil
}

func (h *Heartbeat) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop != nil {
		return
	}

	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	go h.run(h.clock.NewTicker(h.interval), h.stop, h.done)
}

func (h *Heartbeat) Stop() {
	h.mu.Lock()
	stop, done := h.stop, h.done
	h.stop, h.done = nil, nil
	h.mu.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	<-done
}

func (h *Heartbeat) run(ticker clockwork.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			select {
			case <-stop:
				return
			default:
			}

			// a failed send is skipped, the next tick tries again
			if err := h.pinger.Ping(h.media.Position(), !h.media.Paused()); err != nil {
				h.logger.Warn("heartbeat ping failed", "error", err)
			}
		}
	}
}
