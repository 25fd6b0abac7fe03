package room

type Participant struct {
	ConnectionID string
	DisplayName  string
}

type Playback struct {
	VideoID     *string `redis:"video_id"`
	StreamURL   *string `redis:"stream_url"`
	IsPlaying   bool    `redis:"is_playing"`
	CurrentTime float64 `redis:"current_time"`
	UpdatedAt   int64   `redis:"updated_at"`
}

type SetRoomStateParams struct {
	RoomID       string
	HostID       *string
	Participants []Participant
	Playback     Playback
}
