package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
)

type JoinRoomParams struct {
	ConnectionID string
	RoomID       string
	DisplayName  string
	// OnJoined, if set, runs in the room goroutine right after the join is
	// accepted and before any later room:state reaches the joiner.
	OnJoined func(domain.RoomState)
}

type JoinRoomResponse struct {
	Room domain.RoomState
}

func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	current, err := s.connRepo.GetRoomID(params.ConnectionID)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get connection room: %w", err)
	}

	if current != "" {
		return JoinRoomResponse{}, domain.ErrAlreadyJoined
	}

	for {
		a, created := s.registry.getOrCreate(params.RoomID, func() *actor {
			return s.newActor(params.RoomID)
		})
		if created {
			go a.run(s.ctx)
		}

		res, err := a.submit(ctx, request{
			sender:    params.ConnectionID,
			cmd:       domain.Join{DisplayName: params.DisplayName},
			onApplied: params.OnJoined,
		})
		if errors.Is(err, ErrRoomClosed) {
			// lost the race with the room emptying; the next attempt creates a fresh one
			if s.ctx.Err() != nil {
				return JoinRoomResponse{}, err
			}
			continue
		}
		if err != nil {
			if created {
				s.releaseIfEmpty(ctx, a)
			}
			return JoinRoomResponse{}, err
		}
		if res.err != nil {
			return JoinRoomResponse{}, res.err
		}

		if err := s.connRepo.SetRoomID(params.ConnectionID, params.RoomID); err != nil {
			s.logger.WarnContext(ctx, "failed to set connection room", "error", err)
		}

		return JoinRoomResponse{Room: res.state}, nil
	}
}

// releaseIfEmpty lets a room whose first join never reached it notice that it
// is empty, so it unregisters itself and its goroutine exits.
func (s *service) releaseIfEmpty(ctx context.Context, a *actor) {
	if _, err := a.submit(context.WithoutCancel(ctx), request{}); err != nil && !errors.Is(err, ErrRoomClosed) {
		s.logger.WarnContext(ctx, "failed to release room", "error", err)
	}
}

// LeaveRoom removes the connection from its room. Leaving while in no room
// is not an error.
func (s *service) LeaveRoom(ctx context.Context, connectionID string) error {
	roomID, err := s.connRepo.GetRoomID(connectionID)
	if err != nil {
		return fmt.Errorf("failed to get connection room: %w", err)
	}

	if roomID == "" {
		return nil
	}

	if a, ok := s.registry.get(roomID); ok {
		res, err := a.submit(ctx, request{
			sender: connectionID,
			cmd:    domain.Leave{},
		})
		switch {
		case errors.Is(err, ErrRoomClosed):
		case err != nil:
			return err
		case res.err != nil && !errors.Is(res.err, domain.ErrNotJoined):
			return res.err
		}
	}

	if err := s.connRepo.SetRoomID(connectionID, ""); err != nil && !errors.Is(err, connection.ErrNotFound) {
		return fmt.Errorf("failed to clear connection room: %w", err)
	}

	return nil
}

// DisconnectMember is the implicit leave of a dropped connection. It must not
// be abandoned halfway, so it ignores the caller's cancellation.
func (s *service) DisconnectMember(ctx context.Context, connectionID string) {
	if err := s.LeaveRoom(context.WithoutCancel(ctx), connectionID); err != nil {
		s.logger.WarnContext(ctx, "failed to leave room on disconnect", "error", err)
	}
}

func (s *service) ClaimHost(ctx context.Context, connectionID string) (domain.RoomState, error) {
	return s.apply(ctx, connectionID, domain.ClaimHost{})
}

// apply runs cmd in the room the connection is in.
func (s *service) apply(ctx context.Context, connectionID string, cmd domain.Command) (domain.RoomState, error) {
	roomID, err := s.connRepo.GetRoomID(connectionID)
	if err != nil {
		return domain.RoomState{}, fmt.Errorf("failed to get connection room: %w", err)
	}

	if roomID == "" {
		return domain.RoomState{}, ErrNotInRoom
	}

	a, ok := s.registry.get(roomID)
	if !ok {
		return domain.RoomState{}, ErrNotInRoom
	}

	res, err := a.submit(ctx, request{
		sender: connectionID,
		cmd:    cmd,
	})
	if errors.Is(err, ErrRoomClosed) {
		return domain.RoomState{}, ErrNotInRoom
	}
	if err != nil {
		return domain.RoomState{}, err
	}

	if res.err != nil {
		return domain.RoomState{}, res.err
	}

	return res.state, nil
}
