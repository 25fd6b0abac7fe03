package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type iRoomService interface {
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(ctx context.Context, connectionID string) error
	DisconnectMember(ctx context.Context, connectionID string)
	ClaimHost(ctx context.Context, connectionID string) (domain.RoomState, error)
	SetVideo(context.Context, *room.SetVideoParams) (domain.RoomState, error)
	Play(context.Context, *room.UpdatePlayerParams) (domain.RoomState, error)
	Pause(context.Context, *room.UpdatePlayerParams) (domain.RoomState, error)
	Seek(context.Context, *room.UpdatePlayerParams) (domain.RoomState, error)
	PingPlayerState(context.Context, *room.PingPlayerStateParams) error
	GetRoomState(ctx context.Context, roomID string) (domain.RoomState, error)
	ListRooms(context.Context) ([]room.RoomSummary, error)
}

type iConnRepo interface {
	Add(connectionID string) (<-chan []byte, error)
	Send(connectionID string, msg []byte) error
	Remove(connectionID string) error
	GetRoomID(connectionID string) (string, error)
}

type controller struct {
	roomService iRoomService
	connRepo    iConnRepo
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsRouter    *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(roomService iRoomService, connRepo iConnRepo, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		connRepo:    connRepo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
	c.wsRouter = c.getWSRouter()

	return c
}
