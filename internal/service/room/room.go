package room

import (
	"context"
	"errors"

	"github.com/sharetube/watchparty/internal/domain"
)

type RoomSummary struct {
	RoomID            string `json:"roomId"`
	ParticipantsCount int    `json:"participantsCount"`
	IsHosted          bool   `json:"isHosted"`
	IsPlaying         bool   `json:"isPlaying"`
}

func (s *service) GetRoomState(ctx context.Context, roomID string) (domain.RoomState, error) {
	a, ok := s.registry.get(roomID)
	if !ok {
		return domain.RoomState{}, ErrRoomNotFound
	}

	res, err := a.submit(ctx, request{})
	if errors.Is(err, ErrRoomClosed) {
		return domain.RoomState{}, ErrRoomNotFound
	}
	if err != nil {
		return domain.RoomState{}, err
	}

	return res.state, nil
}

// ListRooms returns the live rooms ordered by id.
func (s *service) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	ids := s.registry.ids()
	rooms := make([]RoomSummary, 0, len(ids))
	for _, id := range ids {
		state, err := s.GetRoomState(ctx, id)
		if errors.Is(err, ErrRoomNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		rooms = append(rooms, RoomSummary{
			RoomID:            state.RoomID,
			ParticipantsCount: len(state.Participants),
			IsHosted:          state.HostID != nil,
			IsPlaying:         state.Playback.IsPlaying,
		})
	}

	return rooms, nil
}
