package room

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
)

const StateMessageType = "room:state"

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// broadcast sends state to every participant except the one given.
func (a *actor) broadcast(state domain.RoomState, except string) {
	msg, err := json.Marshal(&Output{
		Type:    StateMessageType,
		Payload: state,
	})
	if err != nil {
		a.s.logger.ErrorContext(a.ctx, "failed to marshal room state", "error", err)
		return
	}

	a.lastState = msg
	for _, p := range state.Participants {
		if p.ConnectionID == except {
			continue
		}

		a.send(p.ConnectionID, msg)
	}
}

// repeat re-sends the last broadcast snapshot to every participant.
func (a *actor) repeat() {
	if a.lastState == nil {
		return
	}

	for _, p := range a.room.Participants() {
		a.send(p.ConnectionID, a.lastState)
	}
}

func (a *actor) send(connectionID string, msg []byte) {
	err := a.s.connRepo.Send(connectionID, msg)
	switch {
	case err == nil:
	case errors.Is(err, connection.ErrClosed), errors.Is(err, connection.ErrNotFound):
		a.s.logger.DebugContext(a.ctx, "skipped send to gone connection", "connection_id", connectionID)
	default:
		a.s.logger.WarnContext(a.ctx, "failed to send room state", "connection_id", connectionID, "error", err)
	}
}

func (s *service) mirrorState(ctx context.Context, state domain.RoomState) {
	if s.roomRepo == nil {
		return
	}

	participants := make([]room.Participant, 0, len(state.Participants))
	for _, p := range state.Participants {
		participants = append(participants, room.Participant{
			ConnectionID: p.ConnectionID,
			DisplayName:  p.DisplayName,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	if err := s.roomRepo.SetRoomState(ctx, &room.SetRoomStateParams{
		RoomID:       state.RoomID,
		HostID:       state.HostID,
		Participants: participants,
		Playback: room.Playback{
			VideoID:     state.Playback.VideoID,
			StreamURL:   state.Playback.StreamURL,
			IsPlaying:   state.Playback.IsPlaying,
			CurrentTime: state.Playback.CurrentTime,
			UpdatedAt:   state.Playback.UpdatedAt,
		},
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to mirror room state", "error", err)
	}
}

func (s *service) removeMirror(ctx context.Context, roomID string) {
	if s.roomRepo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	if err := s.roomRepo.RemoveRoom(ctx, roomID); err != nil {
		s.logger.WarnContext(ctx, "failed to remove mirrored room", "error", err)
	}
}
