package room

import (
	"context"

	"github.com/sharetube/watchparty/internal/domain"
)

type SetVideoParams struct {
	ConnectionID string
	VideoID      string
	StreamURL    string
}

func (s *service) SetVideo(ctx context.Context, params *SetVideoParams) (domain.RoomState, error) {
	return s.apply(ctx, params.ConnectionID, domain.SetVideo{
		VideoID:   params.VideoID,
		StreamURL: params.StreamURL,
	})
}

// UpdatePlayerParams carries a host playback command. Ts is the client's
// monotonic send time in ms, zero when the client does not send one.
type UpdatePlayerParams struct {
	ConnectionID string
	Time         float64
	Ts           int64
}

func (s *service) Play(ctx context.Context, params *UpdatePlayerParams) (domain.RoomState, error) {
	return s.apply(ctx, params.ConnectionID, domain.Play{Time: params.Time, Ts: params.Ts})
}

func (s *service) Pause(ctx context.Context, params *UpdatePlayerParams) (domain.RoomState, error) {
	return s.apply(ctx, params.ConnectionID, domain.Pause{Time: params.Time, Ts: params.Ts})
}

func (s *service) Seek(ctx context.Context, params *UpdatePlayerParams) (domain.RoomState, error) {
	return s.apply(ctx, params.ConnectionID, domain.Seek{Time: params.Time, Ts: params.Ts})
}

type PingPlayerStateParams struct {
	ConnectionID string
	Time         float64
	Playing      bool
	Ts           int64
}

// PingPlayerState applies a host heartbeat. Callers do not acknowledge it, so
// errors are only worth logging.
func (s *service) PingPlayerState(ctx context.Context, params *PingPlayerStateParams) error {
	_, err := s.apply(ctx, params.ConnectionID, domain.Ping{
		Time:    params.Time,
		Playing: params.Playing,
		Ts:      params.Ts,
	})

	return err
}
