package controller

import (
	"context"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type EmptyInput struct{}

type JoinRoomInput struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	Name   string `json:"name" validate:"max=64"`
}

func (c *controller) handleJoinRoom(ctx context.Context, conn wsrouter.Conn, input JoinRoomInput) (any, error) {
	if err := c.validateInput(input); err != nil {
		return nil, err
	}

	connectionID := c.getConnectionIDFromCtx(ctx)
	resp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		ConnectionID: connectionID,
		RoomID:       input.RoomID,
		DisplayName:  input.Name,
		OnJoined: func(state domain.RoomState) {
			if err := wsrouter.WriteAck(ctx, conn, joinAck(state, connectionID)); err != nil {
				c.logger.DebugContext(ctx, "join ack not written early", "error", err)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	return joinAck(resp.Room, connectionID), nil
}

func (c *controller) handleLeaveRoom(ctx context.Context, _ wsrouter.Conn, _ EmptyInput) (any, error) {
	if err := c.roomService.LeaveRoom(ctx, c.getConnectionIDFromCtx(ctx)); err != nil {
		return nil, err
	}

	return okAck(), nil
}

type ClaimHostInput struct {
	RoomID string `json:"roomId" validate:"omitempty,max=64"`
}

func (c *controller) handleClaimHost(ctx context.Context, _ wsrouter.Conn, input ClaimHostInput) (any, error) {
	if err := c.validateInput(input); err != nil {
		return nil, err
	}

	connectionID := c.getConnectionIDFromCtx(ctx)
	if err := c.checkRoom(connectionID, input.RoomID); err != nil {
		return nil, err
	}

	state, err := c.roomService.ClaimHost(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	return roomAck(state), nil
}

type SetVideoInput struct {
	RoomID    string `json:"roomId" validate:"omitempty,max=64"`
	VideoID   string `json:"videoId" validate:"required,max=256"`
	StreamURL string `json:"streamUrl" validate:"required,max=2048"`
}

func (c *controller) handleSetVideo(ctx context.Context, _ wsrouter.Conn, input SetVideoInput) (any, error) {
	if err := c.validateInput(input); err != nil {
		return nil, err
	}

	connectionID := c.getConnectionIDFromCtx(ctx)
	if err := c.checkRoom(connectionID, input.RoomID); err != nil {
		return nil, err
	}

	if _, err := c.roomService.SetVideo(ctx, &room.SetVideoParams{
		ConnectionID: connectionID,
		VideoID:      input.VideoID,
		StreamURL:    input.StreamURL,
	}); err != nil {
		return nil, err
	}

	return okAck(), nil
}

// PlayerInput is shared by play, pause and seek. Ts is the client send time
// in ms and orders commands from the same host.
type PlayerInput struct {
	RoomID string   `json:"roomId" validate:"omitempty,max=64"`
	Time   *float64 `json:"time" validate:"required,gte=0"`
	Ts     int64    `json:"ts" validate:"gte=0"`
}

type playerCommand func(context.Context, *room.UpdatePlayerParams) (domain.RoomState, error)

func (c *controller) handlePlayerCommand(ctx context.Context, input PlayerInput, command playerCommand) (any, error) {
	if err := c.validateInput(input); err != nil {
		return nil, err
	}

	connectionID := c.getConnectionIDFromCtx(ctx)
	if err := c.checkRoom(connectionID, input.RoomID); err != nil {
		return nil, err
	}

	if _, err := command(ctx, &room.UpdatePlayerParams{
		ConnectionID: connectionID,
		Time:         *input.Time,
		Ts:           input.Ts,
	}); err != nil {
		return nil, err
	}

	return okAck(), nil
}

func (c *controller) handlePlay(ctx context.Context, _ wsrouter.Conn, input PlayerInput) (any, error) {
	return c.handlePlayerCommand(ctx, input, c.roomService.Play)
}

func (c *controller) handlePause(ctx context.Context, _ wsrouter.Conn, input PlayerInput) (any, error) {
	return c.handlePlayerCommand(ctx, input, c.roomService.Pause)
}

func (c *controller) handleSeek(ctx context.Context, _ wsrouter.Conn, input PlayerInput) (any, error) {
	return c.handlePlayerCommand(ctx, input, c.roomService.Seek)
}

type PlayerStateInput struct {
	RoomID  string   `json:"roomId" validate:"omitempty,max=64"`
	Time    *float64 `json:"time" validate:"required,gte=0"`
	Playing bool     `json:"playing"`
	Ts      int64    `json:"ts" validate:"gte=0"`
}

// handlePlayerState takes the host heartbeat. It is fire-and-forget, so
// rejections are only logged.
func (c *controller) handlePlayerState(ctx context.Context, _ wsrouter.Conn, input PlayerStateInput) (any, error) {
	if err := c.validateInput(input); err != nil {
		c.logger.DebugContext(ctx, "invalid player state", "error", err)
		return okAck(), nil
	}

	connectionID := c.getConnectionIDFromCtx(ctx)
	if err := c.checkRoom(connectionID, input.RoomID); err != nil {
		c.logger.DebugContext(ctx, "player state for another room dropped", "error", err)
		return okAck(), nil
	}

	if err := c.roomService.PingPlayerState(ctx, &room.PingPlayerStateParams{
		ConnectionID: connectionID,
		Time:         *input.Time,
		Playing:      input.Playing,
		Ts:           input.Ts,
	}); err != nil {
		c.logger.DebugContext(ctx, "player state rejected", "error", err)
	}

	return okAck(), nil
}

// checkRoom rejects commands addressed to a room other than the
// connection's own. An empty roomID skips the check.
func (c *controller) checkRoom(connectionID, roomID string) error {
	if roomID == "" {
		return nil
	}

	current, err := c.connRepo.GetRoomID(connectionID)
	if err != nil {
		return err
	}

	if current != roomID {
		return room.ErrNotInRoom
	}

	return nil
}
