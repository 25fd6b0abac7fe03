package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchparty/internal/repository/room"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomClosed   = errors.New("room closed")
	ErrNotInRoom    = errors.New("not in room")
)

type iConnRepo interface {
	Send(connectionID string, msg []byte) error
	SetRoomID(connectionID, roomID string) error
	GetRoomID(connectionID string) (string, error)
}

// iRoomRepo mirrors room snapshots to external storage. It is optional.
type iRoomRepo interface {
	SetRoomState(context.Context, *room.SetRoomStateParams) error
	RemoveRoom(context.Context, string) error
}

type Config struct {
	MembersLimit  int
	StateInterval time.Duration
	MirrorTimeout time.Duration
	Clock         clockwork.Clock
	Logger        *slog.Logger
}

type service struct {
	connRepo      iConnRepo
	roomRepo      iRoomRepo
	registry      *registry
	membersLimit  int
	stateInterval time.Duration
	mirrorTimeout time.Duration
	clock         clockwork.Clock
	logger        *slog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
}

// New builds the room service. roomRepo may be nil, in which case
// snapshots are not mirrored.
func New(connRepo iConnRepo, roomRepo iRoomRepo, cfg *Config) *service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mirrorTimeout := cfg.MirrorTimeout
	if mirrorTimeout <= 0 {
		mirrorTimeout = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &service{
		connRepo:      connRepo,
		roomRepo:      roomRepo,
		registry:      newRegistry(),
		membersLimit:  cfg.MembersLimit,
		stateInterval: cfg.StateInterval,
		mirrorTimeout: mirrorTimeout,
		clock:         clock,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Close stops every room goroutine and waits for them to exit or ctx to end.
func (s *service) Close(ctx context.Context) error {
	s.cancel()

	for _, a := range s.registry.all() {
		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
