package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
)

var errNotMirrored = errors.New("room not mirrored")

type mirroredRoom struct {
	RoomID       string
	HostID       *string
	Participants []room.Participant
	Playback     room.Playback
}

// readRoom decodes what SetRoomState wrote, the way an external reader of the
// mirror would.
func readRoom(ctx context.Context, rc *redis.Client, r *repo, roomID string) (mirroredRoom, error) {
	fields, err := rc.HGetAll(ctx, r.getPlaybackKey(roomID)).Result()
	if err != nil {
		return mirroredRoom{}, err
	}
	if len(fields) == 0 {
		return mirroredRoom{}, errNotMirrored
	}

	state := mirroredRoom{
		RoomID: roomID,
		Playback: room.Playback{
			VideoID:     stringField(fields, "video_id"),
			StreamURL:   stringField(fields, "stream_url"),
			IsPlaying:   fields["is_playing"] == "1",
			CurrentTime: floatField(fields["current_time"]),
			UpdatedAt:   intField(fields["updated_at"]),
		},
		Participants: []room.Participant{},
	}

	ids, err := rc.ZRange(ctx, r.getParticipantsKey(roomID), 0, -1).Result()
	if err != nil {
		return mirroredRoom{}, err
	}
	names, err := rc.HGetAll(ctx, r.getNamesKey(roomID)).Result()
	if err != nil {
		return mirroredRoom{}, err
	}
	for _, id := range ids {
		state.Participants = append(state.Participants, room.Participant{ConnectionID: id, DisplayName: names[id]})
	}

	hostID, err := rc.HGet(ctx, r.getMetaKey(roomID), "host_id").Result()
	switch {
	case err == nil:
		state.HostID = &hostID
	case !errors.Is(err, redis.Nil):
		return mirroredRoom{}, err
	}

	return state, nil
}

func stringField(fields map[string]string, key string) *string {
	value, ok := fields[key]
	if !ok {
		return nil
	}
	return &value
}

func floatField(field string) float64 {
	f, _ := strconv.ParseFloat(field, 64)
	return f
}

func intField(field string) int64 {
	i, _ := strconv.ParseInt(field, 10, 64)
	return i
}
