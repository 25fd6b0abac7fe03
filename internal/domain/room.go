package domain

import (
	"math"
	"time"
)

type RoomState struct {
	RoomID       string        `json:"roomId"`
	HostID       *string       `json:"hostSocketId"`
	Participants []Participant `json:"participants"`
	Playback     Playback      `json:"playback"`
}

// Room is the authoritative state of a single room. It is not safe for
// concurrent use; callers serialize access per room.
type Room struct {
	id           string
	hostID       string
	participants *Participants
	playback     Playback
	// client timestamp of the last applied time-bearing host command
	lastTs int64
}

func NewRoom(id string, membersLimit int, now time.Time) *Room {
	return &Room{
		id:           id,
		participants: NewParticipants(membersLimit),
		playback:     NewPlayback(now),
	}
}

func (r Room) ID() string {
	return r.id
}

func (r Room) HostID() (string, bool) {
	return r.hostID, r.hostID != ""
}

func (r Room) IsHosted() bool {
	return r.hostID != ""
}

func (r Room) IsEmpty() bool {
	return r.participants.Length() == 0
}

func (r Room) Has(connectionID string) bool {
	return r.participants.Has(connectionID)
}

func (r Room) Participants() []Participant {
	return r.participants.AsList()
}

func (r Room) Playback() Playback {
	return r.playback
}

func (r Room) State() RoomState {
	state := RoomState{
		RoomID:       r.id,
		Participants: r.participants.AsList(),
		Playback:     r.playback,
	}
	if r.hostID != "" {
		hostID := r.hostID
		state.HostID = &hostID
	}

	return state
}

// Apply validates cmd issued by sender and mutates the room on success.
// changed is false when the command was accepted but had no visible effect
// (a stale ping), in which case nothing needs to be broadcast.
func (r *Room) Apply(sender string, cmd Command, now time.Time) (changed bool, err error) {
	switch c := cmd.(type) {
	case Join:
		return r.join(sender, c)
	case Leave:
		return r.leave(sender)
	case ClaimHost:
		return r.claimHost(sender)
	case SetVideo:
		return r.setVideo(sender, c, now)
	case Play:
		return r.updatePlayback(sender, c.Time, true, c.Ts, now)
	case Pause:
		return r.updatePlayback(sender, c.Time, false, c.Ts, now)
	case Seek:
		return r.updatePlayback(sender, c.Time, r.playback.IsPlaying, c.Ts, now)
	case Ping:
		if err := r.checkHost(sender); err != nil {
			return false, err
		}
		if r.isStale(c.Ts) {
			return false, nil
		}
		return r.updatePlayback(sender, c.Time, c.Playing, c.Ts, now)
	default:
		return false, ErrUnknownCommand
	}
}

func (r *Room) join(sender string, c Join) (bool, error) {
	if err := r.participants.Add(Participant{
		ConnectionID: sender,
		DisplayName:  c.DisplayName,
	}); err != nil {
		return false, err
	}

	return true, nil
}

// leave keeps the playback snapshot untouched, a departing host does not pause the room.
func (r *Room) leave(sender string) (bool, error) {
	if _, err := r.participants.RemoveByID(sender); err != nil {
		return false, err
	}

	if r.hostID == sender {
		r.hostID = ""
		r.lastTs = 0
	}

	return true, nil
}

func (r *Room) claimHost(sender string) (bool, error) {
	if !r.participants.Has(sender) {
		return false, ErrNotJoined
	}

	if r.hostID != "" {
		return false, &HostAlreadyClaimedError{HostID: r.hostID}
	}

	r.hostID = sender
	r.lastTs = 0
	return true, nil
}

func (r *Room) setVideo(sender string, c SetVideo, now time.Time) (bool, error) {
	if err := r.checkHost(sender); err != nil {
		return false, err
	}

	videoID, streamURL := c.VideoID, c.StreamURL
	r.playback = Playback{
		VideoID:     &videoID,
		StreamURL:   &streamURL,
		IsPlaying:   false,
		CurrentTime: 0,
		UpdatedAt:   r.nextUpdatedAt(now),
	}

	return true, nil
}

func (r *Room) updatePlayback(sender string, t float64, playing bool, ts int64, now time.Time) (bool, error) {
	if err := r.checkHost(sender); err != nil {
		return false, err
	}

	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return false, ErrInvalidTime
	}

	if r.isStale(ts) {
		return false, ErrStaleCommand
	}

	r.playback.IsPlaying = playing
	r.playback.CurrentTime = t
	r.playback.UpdatedAt = r.nextUpdatedAt(now)
	if ts > 0 {
		r.lastTs = ts
	}

	return true, nil
}

func (r Room) checkHost(sender string) error {
	if r.hostID == "" || r.hostID != sender {
		return ErrNotHost
	}

	return nil
}

func (r Room) isStale(ts int64) bool {
	return ts > 0 && ts < r.lastTs
}

// nextUpdatedAt keeps UpdatedAt strictly increasing within a room even when
// two commands land in the same millisecond.
func (r Room) nextUpdatedAt(now time.Time) int64 {
	updatedAt := now.UnixMilli()
	if updatedAt <= r.playback.UpdatedAt {
		updatedAt = r.playback.UpdatedAt + 1
	}

	return updatedAt
}
