package client

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchparty/internal/domain"
)

const (
	DefaultTolerance = 0.3
	maxExtrapolation = 10 * time.Second
)

// MediaElement is the local player a follower keeps in sync. Play returns
// ErrPlaybackRefused when the environment blocks playback until a user gesture.
// Load switches the source; Ready reports false until it can be played.
type MediaElement interface {
	Load(src string) error
	Ready() bool
	Position() float64
	Paused() bool
	Seek(t float64) error
	Play() error
	Pause() error
}

type ReconcilerState int

const (
	Idle ReconcilerState = iota
	WaitingForMedia
	Synced
	NeedsUserGesture
)

func (s ReconcilerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingForMedia:
		return "waiting_for_media"
	case Synced:
		return "synced"
	case NeedsUserGesture:
		return "needs_user_gesture"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type ReconcilerConfig struct {
	// BaseURL resolves the room's stream urls, which are usually paths.
	BaseURL   *url.URL
	Tolerance float64
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// Reconciler aligns a local media element with the authoritative playback
// snapshot. It only runs when a snapshot arrives or the media becomes ready.
type Reconciler struct {
	media     MediaElement
	baseURL   *url.URL
	tolerance float64
	clock     clockwork.Clock
	logger    *slog.Logger

	mu       sync.Mutex
	snapshot *domain.Playback
	state    ReconcilerState
	// stream url the media was last loaded with
	loaded string
}

func NewReconciler(media MediaElement, cfg *ReconcilerConfig) *Reconciler {
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		media:     media,
		baseURL:   cfg.BaseURL,
		tolerance: tolerance,
		clock:     clock,
		logger:    logger,
		state:     Idle,
	}
}

func (r *Reconciler) State() ReconcilerState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Apply reconciles against p unless a newer snapshot was already applied.
// ErrMediaNotReady means the decision is kept until MediaReady.
func (r *Reconciler) Apply(p domain.Playback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot != nil && !r.snapshot.SupersededBy(p) {
		return nil
	}
	r.snapshot = &p

	return r.reconcile(r.state != NeedsUserGesture)
}

func (r *Reconciler) MediaReady() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot == nil {
		return nil
	}

	return r.reconcile(r.state != NeedsUserGesture)
}

// UserGesture retries a refused play once.
func (r *Reconciler) UserGesture() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != NeedsUserGesture || r.snapshot == nil {
		return nil
	}

	if err := r.reconcile(true); err != nil {
		return err
	}
	if r.state == NeedsUserGesture {
		return ErrPlaybackRefused
	}

	return nil
}

// target is the snapshot position extrapolated to now. Elapsed time is clamped
// so clock skew can not push the target far off.
func (r *Reconciler) target(p domain.Playback) float64 {
	if !p.IsPlaying {
		return p.CurrentTime
	}

	elapsed := r.clock.Now().Sub(time.UnixMilli(p.UpdatedAt))
	elapsed = max(0, min(elapsed, maxExtrapolation))

	return p.CurrentTime + elapsed.Seconds()
}

func (r *Reconciler) resolve(streamURL string) (string, error) {
	ref, err := url.Parse(streamURL)
	if err != nil {
		return "", fmt.Errorf("invalid stream url %q: %w", streamURL, err)
	}

	if r.baseURL == nil {
		return ref.String(), nil
	}

	return r.baseURL.ResolveReference(ref).String(), nil
}

func (r *Reconciler) reconcile(allowPlay bool) error {
	p := *r.snapshot
	if !p.HasVideo() {
		r.state = Idle
		return nil
	}

	if p.StreamURL != nil && *p.StreamURL != r.loaded {
		src, err := r.resolve(*p.StreamURL)
		if err != nil {
			return err
		}

		r.logger.Debug("loading media", "src", src)
		if err := r.media.Load(src); err != nil {
			return fmt.Errorf("failed to load %s: %w", src, err)
		}
		r.loaded = *p.StreamURL
	}

	if !r.media.Ready() {
		r.state = WaitingForMedia
		return ErrMediaNotReady
	}

	target := r.target(p)
	if drift := math.Abs(r.media.Position() - target); drift > r.tolerance {
		r.logger.Debug("seeking to authoritative position", "drift", drift, "target", target)
		if err := r.media.Seek(target); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
	}

	if !p.IsPlaying {
		if !r.media.Paused() {
			if err := r.media.Pause(); err != nil {
				return fmt.Errorf("failed to pause: %w", err)
			}
		}
		r.state = Synced
		return nil
	}

	if !r.media.Paused() {
		r.state = Synced
		return nil
	}

	if !allowPlay {
		return nil
	}

	if err := r.media.Play(); err != nil {
		if errors.Is(err, ErrPlaybackRefused) {
			r.logger.Info("playback refused, waiting for user gesture")
			r.state = NeedsUserGesture
			return nil
		}
		return fmt.Errorf("failed to play: %w", err)
	}
	r.state = Synced

	return nil
}
