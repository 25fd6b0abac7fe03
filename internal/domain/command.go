package domain

// Command is a room command. Only the types in this file implement it.
type Command interface {
	Name() string
}

type Join struct {
	DisplayName string
}

type Leave struct{}

type ClaimHost struct{}

type SetVideo struct {
	VideoID   string
	StreamURL string
}

// Play, Pause and Seek carry the host's local position and the client timestamp
// (unix ms, 0 if unknown) the command was issued at.
type Play struct {
	Time float64
	Ts   int64
}

type Pause struct {
	Time float64
	Ts   int64
}

type Seek struct {
	Time float64
	Ts   int64
}

// Ping is the host heartbeat.
type Ping struct {
	Time    float64
	Playing bool
	Ts      int64
}

func (Join) Name() string      { return "join" }
func (Leave) Name() string     { return "leave" }
func (ClaimHost) Name() string { return "claim_host" }
func (SetVideo) Name() string  { return "set_video" }
func (Play) Name() string      { return "play" }
func (Pause) Name() string     { return "pause" }
func (Seek) Name() string      { return "seek" }
func (Ping) Name() string      { return "ping" }
