package domain

import "time"

// Playback is the authoritative playback snapshot of a room. CurrentTime is the
// position as of UpdatedAt (unix milliseconds).
type Playback struct {
	VideoID     *string `json:"videoId"`
	StreamURL   *string `json:"streamUrl"`
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	UpdatedAt   int64   `json:"updatedAt"`
}

func NewPlayback(now time.Time) Playback {
	return Playback{
		IsPlaying:   false,
		CurrentTime: 0,
		UpdatedAt:   now.UnixMilli(),
	}
}

// PositionAt extrapolates CurrentTime to now while playing.
func (p Playback) PositionAt(now time.Time) float64 {
	if !p.IsPlaying {
		return p.CurrentTime
	}

	elapsed := now.UnixMilli() - p.UpdatedAt
	if elapsed < 0 {
		elapsed = 0
	}

	return p.CurrentTime + float64(elapsed)/1000
}

// SupersededBy reports whether other should replace p under last-write-wins.
// Equal timestamps are accepted so repeated snapshots are reapplied.
func (p Playback) SupersededBy(other Playback) bool {
	return other.UpdatedAt >= p.UpdatedAt
}

func (p Playback) HasVideo() bool {
	return p.VideoID != nil
}
