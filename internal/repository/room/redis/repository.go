package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
)

const roomsKey = "rooms"

type repo struct {
	rc     *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, ttl time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		ttl:    ttl,
		logger: logger,
	}
}

func (r repo) getMetaKey(roomID string) string {
	return "room:" + roomID + ":meta"
}

// SetRoomState overwrites the mirrored snapshot of a room in a single
// transaction.
func (r repo) SetRoomState(ctx context.Context, params *room.SetRoomStateParams) error {
	r.logger.DebugContext(ctx, "called", "room_id", params.RoomID)
	pipe := r.rc.TxPipeline()

	pipe.SAdd(ctx, roomsKey, params.RoomID)

	metaKey := r.getMetaKey(params.RoomID)
	if params.HostID != nil {
		pipe.HSet(ctx, metaKey, "host_id", *params.HostID)
	} else {
		pipe.HDel(ctx, metaKey, "host_id")
	}
	pipe.HSet(ctx, metaKey, "participants_count", len(params.Participants))
	pipe.Expire(ctx, metaKey, r.ttl)

	r.setPlayback(ctx, pipe, params.RoomID, params.Playback)
	r.setParticipants(ctx, pipe, params.RoomID, params.Participants)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set room state: %w", err)
	}

	return nil
}

func (r repo) RemoveRoom(ctx context.Context, roomID string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomID)
	pipe := r.rc.TxPipeline()

	pipe.SRem(ctx, roomsKey, roomID)
	pipe.Del(ctx,
		r.getMetaKey(roomID),
		r.getPlaybackKey(roomID),
		r.getParticipantsKey(roomID),
		r.getNamesKey(roomID),
	)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}
