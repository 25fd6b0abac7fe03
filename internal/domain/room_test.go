package domain

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.UnixMilli(1_700_000_000_000)

func newHostedRoom(t *testing.T) *Room {
	t.Helper()
	r := NewRoom("r1", 0, t0)
	_, err := r.Apply("a", Join{DisplayName: "alice"}, t0)
	require.NoError(t, err)
	_, err = r.Apply("a", ClaimHost{}, t0)
	require.NoError(t, err)
	return r
}

func TestJoinLeaveCount(t *testing.T) {
	r := NewRoom("r1", 0, t0)
	rng := rand.New(rand.NewSource(1))
	ids := []string{"a", "b", "c", "d", "e"}
	joined := map[string]bool{}

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		if rng.Intn(2) == 0 {
			_, err := r.Apply(id, Join{DisplayName: id}, t0)
			if joined[id] {
				assert.ErrorIs(t, err, ErrAlreadyJoined)
			} else {
				require.NoError(t, err)
				joined[id] = true
			}
		} else {
			_, err := r.Apply(id, Leave{}, t0)
			if joined[id] {
				require.NoError(t, err)
				delete(joined, id)
			} else {
				assert.ErrorIs(t, err, ErrNotJoined)
			}
		}

		require.Len(t, r.Participants(), len(joined))
	}
}

func TestJoinCapacity(t *testing.T) {
	r := NewRoom("r1", 2, t0)
	_, err := r.Apply("a", Join{DisplayName: "a"}, t0)
	require.NoError(t, err)
	_, err = r.Apply("b", Join{DisplayName: "b"}, t0)
	require.NoError(t, err)

	_, err = r.Apply("c", Join{DisplayName: "c"}, t0)
	assert.ErrorIs(t, err, ErrRoomCapacityExceeded)
	assert.Len(t, r.Participants(), 2)
}

func TestClaimHost(t *testing.T) {
	r := newHostedRoom(t)
	_, err := r.Apply("b", Join{DisplayName: "bob"}, t0)
	require.NoError(t, err)

	_, err = r.Apply("b", ClaimHost{}, t0)
	require.ErrorIs(t, err, ErrHostAlreadyClaimed)

	var claimed *HostAlreadyClaimedError
	require.True(t, errors.As(err, &claimed))
	assert.Equal(t, "a", claimed.HostID)

	hostID, ok := r.HostID()
	assert.True(t, ok)
	assert.Equal(t, "a", hostID)
}

func TestClaimHostRequiresMembership(t *testing.T) {
	r := NewRoom("r1", 0, t0)
	_, err := r.Apply("x", ClaimHost{}, t0)
	assert.ErrorIs(t, err, ErrNotJoined)
	assert.False(t, r.IsHosted())
}

func TestNonHostCommandsRejected(t *testing.T) {
	r := newHostedRoom(t)
	_, err := r.Apply("a", SetVideo{VideoID: "v1", StreamURL: "/stream/v1"}, t0)
	require.NoError(t, err)
	_, err = r.Apply("b", Join{DisplayName: "bob"}, t0)
	require.NoError(t, err)

	before := r.Playback()
	cmds := []Command{
		Play{Time: 3},
		Pause{Time: 3},
		Seek{Time: 3},
		SetVideo{VideoID: "v2", StreamURL: "/stream/v2"},
		Ping{Time: 3, Playing: true},
	}
	for _, cmd := range cmds {
		_, err := r.Apply("b", cmd, t0.Add(time.Second))
		assert.ErrorIs(t, err, ErrNotHost, cmd.Name())
		assert.Equal(t, before, r.Playback(), cmd.Name())
	}
}

func TestPlaybackCommands(t *testing.T) {
	r := newHostedRoom(t)
	_, err := r.Apply("a", SetVideo{VideoID: "v1", StreamURL: "/stream/v1"}, t0)
	require.NoError(t, err)

	p := r.Playback()
	require.NotNil(t, p.VideoID)
	assert.Equal(t, "v1", *p.VideoID)
	assert.Equal(t, "/stream/v1", *p.StreamURL)
	assert.False(t, p.IsPlaying)
	assert.Zero(t, p.CurrentTime)

	_, err = r.Apply("a", Play{Time: 1.5}, t0.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, r.Playback().IsPlaying)
	assert.Equal(t, 1.5, r.Playback().CurrentTime)
	assert.Equal(t, t0.Add(time.Second).UnixMilli(), r.Playback().UpdatedAt)

	_, err = r.Apply("a", Seek{Time: 40}, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.True(t, r.Playback().IsPlaying, "seek keeps play state")
	assert.Equal(t, 40.0, r.Playback().CurrentTime)

	_, err = r.Apply("a", Pause{Time: 41}, t0.Add(3*time.Second))
	require.NoError(t, err)
	assert.False(t, r.Playback().IsPlaying)

	_, err = r.Apply("a", Seek{Time: 10}, t0.Add(4*time.Second))
	require.NoError(t, err)
	assert.False(t, r.Playback().IsPlaying)

	_, err = r.Apply("a", Play{Time: -1}, t0.Add(5*time.Second))
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestUpdatedAtStrictlyIncreases(t *testing.T) {
	r := newHostedRoom(t)
	_, err := r.Apply("a", Play{Time: 1}, t0)
	require.NoError(t, err)
	first := r.Playback().UpdatedAt

	_, err = r.Apply("a", Seek{Time: 2}, t0)
	require.NoError(t, err)
	assert.Greater(t, r.Playback().UpdatedAt, first)
}

func TestStaleCommands(t *testing.T) {
	r := newHostedRoom(t)
	_, err := r.Apply("a", Pause{Time: 5, Ts: 200}, t0)
	require.NoError(t, err)

	changed, err := r.Apply("a", Ping{Time: 4, Playing: true, Ts: 150}, t0.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, r.Playback().IsPlaying, "reordered ping must not resume playback")

	_, err = r.Apply("a", Play{Time: 4, Ts: 100}, t0.Add(time.Second))
	assert.ErrorIs(t, err, ErrStaleCommand)

	changed, err = r.Apply("a", Ping{Time: 6, Playing: false, Ts: 300}, t0.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 6.0, r.Playback().CurrentTime)
}

func TestHostLeaveKeepsPlayback(t *testing.T) {
	r := newHostedRoom(t)
	_, err := r.Apply("b", Join{DisplayName: "bob"}, t0)
	require.NoError(t, err)
	_, err = r.Apply("a", SetVideo{VideoID: "v1", StreamURL: "/stream/v1"}, t0)
	require.NoError(t, err)
	_, err = r.Apply("a", Play{Time: 0, Ts: 500}, t0)
	require.NoError(t, err)
	before := r.Playback()

	_, err = r.Apply("a", Leave{}, t0.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, r.IsHosted())
	assert.Equal(t, before, r.Playback())
	assert.Nil(t, r.State().HostID)

	// the next claimant inherits the snapshot and starts a fresh ts sequence
	_, err = r.Apply("b", ClaimHost{}, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, before, r.Playback())
	_, err = r.Apply("b", Pause{Time: 3, Ts: 10}, t0.Add(2*time.Second))
	require.NoError(t, err)
}

func TestState(t *testing.T) {
	r := newHostedRoom(t)
	state := r.State()
	assert.Equal(t, "r1", state.RoomID)
	require.NotNil(t, state.HostID)
	assert.Equal(t, "a", *state.HostID)
	assert.Equal(t, []Participant{{ConnectionID: "a", DisplayName: "alice"}}, state.Participants)

	// the snapshot is detached from the room
	state.Participants[0].DisplayName = "changed"
	assert.Equal(t, "alice", r.Participants()[0].DisplayName)
}

func TestPlaybackPositionAt(t *testing.T) {
	p := Playback{IsPlaying: true, CurrentTime: 10, UpdatedAt: t0.UnixMilli()}
	assert.InDelta(t, 12.5, p.PositionAt(t0.Add(2500*time.Millisecond)), 1e-9)
	assert.InDelta(t, 10, p.PositionAt(t0.Add(-time.Second)), 1e-9)

	p.IsPlaying = false
	assert.InDelta(t, 10, p.PositionAt(t0.Add(time.Hour)), 1e-9)
}

func TestPlaybackSupersededBy(t *testing.T) {
	older := Playback{CurrentTime: 1, UpdatedAt: 100}
	newer := Playback{CurrentTime: 2, UpdatedAt: 200}

	assert.True(t, older.SupersededBy(newer))
	assert.False(t, newer.SupersededBy(older))
	assert.True(t, newer.SupersededBy(newer))
}
