package client

import (
	"net/url"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func newTestReconciler(media MediaElement) (*Reconciler, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(testNow)
	return NewReconciler(media, &ReconcilerConfig{Clock: clock}), clock
}

func snapshot(currentTime float64, playing bool, updatedAt time.Time) domain.Playback {
	return videoSnapshot("v1", "/stream/v1", currentTime, playing, updatedAt)
}

func videoSnapshot(videoID, streamURL string, currentTime float64, playing bool, updatedAt time.Time) domain.Playback {
	return domain.Playback{
		VideoID:     &videoID,
		StreamURL:   &streamURL,
		IsPlaying:   playing,
		CurrentTime: currentTime,
		UpdatedAt:   updatedAt.UnixMilli(),
	}
}

func TestReconcilerDriftTolerance(t *testing.T) {
	t.Run("within tolerance", func(t *testing.T) {
		media := newFakeMedia(10.0)
		r, _ := newTestReconciler(media)

		require.NoError(t, r.Apply(snapshot(10.2, false, testNow)))
		assert.Empty(t, media.seeks)
		assert.Equal(t, Synced, r.State())
	})

	t.Run("beyond tolerance", func(t *testing.T) {
		media := newFakeMedia(10.0)
		r, _ := newTestReconciler(media)

		require.NoError(t, r.Apply(snapshot(11.0, false, testNow)))
		assert.Equal(t, []float64{11.0}, media.seeks)
	})
}

func TestReconcilerExtrapolatesWhilePlaying(t *testing.T) {
	media := newFakeMedia(0)
	r, clock := newTestReconciler(media)

	snap := snapshot(20, true, testNow)
	clock.Advance(2 * time.Second)

	require.NoError(t, r.Apply(snap))
	require.Len(t, media.seeks, 1)
	assert.InDelta(t, 22.0, media.seeks[0], 0.001)
	assert.False(t, media.Paused())
	assert.Equal(t, Synced, r.State())
}

func TestReconcilerClampsElapsed(t *testing.T) {
	media := newFakeMedia(0)
	r, clock := newTestReconciler(media)

	snap := snapshot(5, true, testNow)
	clock.Advance(time.Minute)
	require.NoError(t, r.Apply(snap))
	assert.InDelta(t, 15.0, media.seeks[0], 0.001)

	// a snapshot stamped in the future does not rewind past currentTime
	media = newFakeMedia(0)
	r, _ = newTestReconciler(media)
	require.NoError(t, r.Apply(snapshot(5, true, testNow.Add(time.Minute))))
	assert.InDelta(t, 5.0, media.seeks[0], 0.001)
}

func TestReconcilerPausesRegardlessOfDrift(t *testing.T) {
	media := newFakeMedia(30)
	media.paused = false
	r, _ := newTestReconciler(media)

	require.NoError(t, r.Apply(snapshot(30.1, false, testNow)))
	assert.True(t, media.Paused())
	assert.Empty(t, media.seeks)
}

func TestReconcilerWaitsForMedia(t *testing.T) {
	media := newFakeMedia(0)
	media.setReady(false)
	r, _ := newTestReconciler(media)

	err := r.Apply(snapshot(42, false, testNow))
	assert.ErrorIs(t, err, ErrMediaNotReady)
	assert.Equal(t, WaitingForMedia, r.State())
	assert.Empty(t, media.seeks)

	media.setReady(true)
	require.NoError(t, r.MediaReady())
	assert.Equal(t, []float64{42}, media.seeks)
	assert.Equal(t, Synced, r.State())
}

func TestReconcilerNeedsUserGesture(t *testing.T) {
	media := newFakeMedia(0)
	media.refuse = 2
	r, _ := newTestReconciler(media)

	require.NoError(t, r.Apply(snapshot(0, true, testNow)))
	assert.Equal(t, NeedsUserGesture, r.State())
	assert.Equal(t, 1, media.plays)

	// further snapshots do not retry on their own
	require.NoError(t, r.Apply(snapshot(0.1, true, testNow)))
	assert.Equal(t, NeedsUserGesture, r.State())
	assert.Equal(t, 1, media.plays)

	assert.ErrorIs(t, r.UserGesture(), ErrPlaybackRefused)
	assert.Equal(t, 2, media.plays)

	require.NoError(t, r.UserGesture())
	assert.Equal(t, 3, media.plays)
	assert.Equal(t, Synced, r.State())
	assert.False(t, media.Paused())
}

func TestReconcilerLastWriteWins(t *testing.T) {
	older := snapshot(10, false, testNow)
	newer := snapshot(50, false, testNow.Add(time.Second))

	inOrder := newFakeMedia(0)
	r, _ := newTestReconciler(inOrder)
	require.NoError(t, r.Apply(older))
	require.NoError(t, r.Apply(newer))

	reversed := newFakeMedia(0)
	r, _ = newTestReconciler(reversed)
	require.NoError(t, r.Apply(newer))
	require.NoError(t, r.Apply(older))

	assert.Equal(t, 50.0, inOrder.Position())
	assert.Equal(t, inOrder.Position(), reversed.Position())
}

func TestReconcilerIdleWithoutVideo(t *testing.T) {
	media := newFakeMedia(0)
	r, _ := newTestReconciler(media)

	require.NoError(t, r.Apply(domain.NewPlayback(testNow)))
	assert.Equal(t, Idle, r.State())
	assert.Zero(t, media.plays)
}

func TestReconcilerLoadsSelectedVideo(t *testing.T) {
	baseURL, err := url.Parse("http://media.example/app/")
	require.NoError(t, err)
	media := newFakeMedia(0)
	clock := clockwork.NewFakeClockAt(testNow)
	r := NewReconciler(media, &ReconcilerConfig{BaseURL: baseURL, Clock: clock})

	require.NoError(t, r.Apply(videoSnapshot("v1", "/stream/v1", 0, false, testNow)))
	assert.Equal(t, []string{"http://media.example/stream/v1"}, media.loads)
	assert.Equal(t, Synced, r.State())

	// the same source is not reloaded by later snapshots
	require.NoError(t, r.Apply(videoSnapshot("v1", "/stream/v1", 3, false, testNow.Add(time.Second))))
	assert.Len(t, media.loads, 1)

	media.asyncLoad = true
	media.seeks = nil
	err = r.Apply(videoSnapshot("v2", "stream/v2", 5, true, testNow.Add(2*time.Second)))
	assert.ErrorIs(t, err, ErrMediaNotReady)
	assert.Equal(t, []string{"http://media.example/stream/v1", "http://media.example/app/stream/v2"}, media.loads)
	assert.Equal(t, WaitingForMedia, r.State())
	assert.Empty(t, media.seeks, "seek waits for the new source")
	assert.Zero(t, media.plays, "play waits for the new source")

	clock.Advance(2 * time.Second)
	media.setReady(true)
	require.NoError(t, r.MediaReady())
	assert.Equal(t, []float64{5}, media.seeks)
	assert.Equal(t, 1, media.plays)
	assert.Equal(t, Synced, r.State())
	assert.Len(t, media.loads, 2)
}
