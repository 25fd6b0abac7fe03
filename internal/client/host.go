package client

import (
	"context"

	"github.com/sharetube/watchparty/internal/domain"
)

type hostSession interface {
	Play(ctx context.Context, t float64) error
	Pause(ctx context.Context, t float64) error
	Seek(ctx context.Context, t float64) error
	SelfID() string
	Done() <-chan struct{}
}

// HostController turns local player actions of the host into room commands and
// keeps the heartbeat running exactly while the host plays.
type HostController struct {
	session   hostSession
	heartbeat *Heartbeat
}

func NewHostController(session hostSession, heartbeat *Heartbeat) *HostController {
	h := &HostController{
		session:   session,
		heartbeat: heartbeat,
	}

	go func() {
		<-session.Done()
		heartbeat.Stop()
	}()

	return h
}

func (h *HostController) Play(ctx context.Context, t float64) error {
	if err := h.session.Play(ctx, t); err != nil {
		return err
	}

	h.heartbeat.Start()
	return nil
}

func (h *HostController) Pause(ctx context.Context, t float64) error {
	h.heartbeat.Stop()
	return h.session.Pause(ctx, t)
}

func (h *HostController) Seek(ctx context.Context, t float64) error {
	return h.session.Seek(ctx, t)
}

// OnState stops the heartbeat once the room no longer names this session as host.
func (h *HostController) OnState(state domain.RoomState) {
	selfID := h.session.SelfID()
	if state.HostID == nil || selfID == "" || *state.HostID != selfID {
		h.heartbeat.Stop()
	}
}

func (h *HostController) Close() {
	h.heartbeat.Stop()
}
