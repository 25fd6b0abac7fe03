package controller

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Type    string          `json:"type"`
	AckID   uint64          `json:"ack_id"`
	Payload json.RawMessage `json:"payload"`
}

type testRoom struct {
	RoomID       string  `json:"roomId"`
	HostSocketID *string `json:"hostSocketId"`
	Participants []struct {
		SocketID string `json:"socketId"`
		Name     string `json:"name"`
	} `json:"participants"`
	Playback struct {
		VideoID   *string `json:"videoId"`
		IsPlaying bool    `json:"isPlaying"`
	} `json:"playback"`
}

type testAck struct {
	OK           bool      `json:"ok"`
	Reason       string    `json:"reason"`
	Message      string    `json:"message"`
	HostSocketID string    `json:"hostSocketId"`
	SocketID     string    `json:"socketId"`
	Room         *testRoom `json:"room"`
	Errors       []struct {
		Field string `json:"field"`
		Code  string `json:"code"`
	} `json:"errors"`
}

type testClient struct {
	t      *testing.T
	conn   *websocket.Conn
	nextID uint64
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	connRepo := inmemory.NewRepo(64, logger)
	roomService := room.New(connRepo, nil, &room.Config{
		StateInterval: time.Hour,
		Logger:        logger,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		roomService.Close(ctx)
	})

	server := httptest.NewServer(NewController(roomService, connRepo, logger).GetMux())
	t.Cleanup(server.Close)

	return server
}

func dial(t *testing.T, server *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testClient{t: t, conn: conn}
}

func (c *testClient) emit(messageType string, payload any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{
		"type":    messageType,
		"payload": payload,
	}))
}

// request sends a message with an ack id and returns the matching ack,
// skipping broadcasts that arrive in between.
func (c *testClient) request(messageType string, payload any) testAck {
	c.t.Helper()
	c.nextID++
	id := c.nextID
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{
		"type":    messageType,
		"ack_id":  id,
		"payload": payload,
	}))

	for {
		msg := c.read()
		if msg.Type != "ack" || msg.AckID != id {
			continue
		}

		var ack testAck
		require.NoError(c.t, json.Unmarshal(msg.Payload, &ack))
		return ack
	}
}

func (c *testClient) read() envelope {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg envelope
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

// waitState reads until a room:state matching cond arrives.
func (c *testClient) waitState(cond func(testRoom) bool) {
	c.t.Helper()
	for {
		msg := c.read()
		if msg.Type != "room:state" {
			continue
		}

		var room testRoom
		require.NoError(c.t, json.Unmarshal(msg.Payload, &room))
		if cond(room) {
			return
		}
	}
}

func TestWatchPartyOverWebsocket(t *testing.T) {
	server := newTestServer(t)
	a := dial(t, server)
	b := dial(t, server)

	ack := a.request("room:join", map[string]any{"roomId": "r1", "name": "alice"})
	require.True(t, ack.OK, ack.Message)
	require.NotNil(t, ack.Room)
	assert.Equal(t, "r1", ack.Room.RoomID)
	assert.Nil(t, ack.Room.HostSocketID)
	require.Len(t, ack.Room.Participants, 1)
	hostID := ack.Room.Participants[0].SocketID
	assert.Equal(t, hostID, ack.SocketID, "join ack names the joiner")

	ack = a.request("host:claim", map[string]any{"roomId": "r1"})
	require.True(t, ack.OK, ack.Message)

	ack = a.request("room:video:set", map[string]any{"roomId": "r1", "videoId": "v1", "streamUrl": "/stream/v1"})
	require.True(t, ack.OK, ack.Message)
	ack = a.request("player:play", map[string]any{"roomId": "r1", "time": 0, "ts": 1})
	require.True(t, ack.OK, ack.Message)

	ack = b.request("room:join", map[string]any{"roomId": "r1", "name": "bob"})
	require.True(t, ack.OK, ack.Message)
	require.NotEmpty(t, ack.SocketID)
	assert.NotEqual(t, hostID, ack.SocketID)
	assert.True(t, ack.Room.Playback.IsPlaying)
	require.NotNil(t, ack.Room.Playback.VideoID)
	assert.Equal(t, "v1", *ack.Room.Playback.VideoID)
	require.NotNil(t, ack.Room.HostSocketID)
	assert.Equal(t, hostID, *ack.Room.HostSocketID)

	ack = b.request("player:pause", map[string]any{"time": 1})
	assert.False(t, ack.OK)
	assert.Equal(t, "NOT_HOST", ack.Reason)

	ack = b.request("host:claim", map[string]any{})
	assert.False(t, ack.OK)
	assert.Equal(t, "HOST_ALREADY_CLAIMED", ack.Reason)
	assert.Equal(t, hostID, ack.HostSocketID)

	ack = b.request("room:join", map[string]any{"roomId": "r2", "name": "bob"})
	assert.Equal(t, "ALREADY_JOINED", ack.Reason)

	// heartbeat from the host is fire-and-forget and reaches followers as room:state
	a.emit("player:state", map[string]any{"roomId": "r1", "time": 3, "playing": false, "ts": 2})
	b.waitState(func(r testRoom) bool { return !r.Playback.IsPlaying })

	// host drops; the follower sees the room without a host
	require.NoError(t, a.conn.Close())
	b.waitState(func(r testRoom) bool { return r.HostSocketID == nil })

	ack = b.request("host:claim", map[string]any{})
	assert.True(t, ack.OK, ack.Message)
}

func TestValidationErrors(t *testing.T) {
	server := newTestServer(t)
	a := dial(t, server)

	ack := a.request("room:join", map[string]any{"name": "alice"})
	assert.False(t, ack.OK)
	assert.Equal(t, "VALIDATION_ERROR", ack.Reason)
	require.Len(t, ack.Errors, 1)
	assert.Equal(t, "roomId", ack.Errors[0].Field)
	assert.Equal(t, "REQUIRED", ack.Errors[0].Code)

	ack = a.request("player:play", map[string]any{"time": -1})
	assert.Equal(t, "VALIDATION_ERROR", ack.Reason)

	ack = a.request("player:play", "not an object")
	assert.Equal(t, "VALIDATION_ERROR", ack.Reason)

	ack = a.request("player:play", map[string]any{"time": 1})
	assert.Equal(t, "NOT_IN_ROOM", ack.Reason)

	ack = a.request("room:leave", map[string]any{})
	assert.True(t, ack.OK, "leaving with no room is fine")

	ack = a.request("nope", nil)
	assert.False(t, ack.OK)
}

func TestRoomsEndpoints(t *testing.T) {
	server := newTestServer(t)
	a := dial(t, server)
	ack := a.request("room:join", map[string]any{"roomId": "lobby", "name": "alice"})
	require.True(t, ack.OK)

	resp, err := http.Get(server.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/v1/rooms/")
	require.NoError(t, err)
	var list struct {
		Data []room.RoomSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Equal(t, []room.RoomSummary{{RoomID: "lobby", ParticipantsCount: 1}}, list.Data)

	resp, err = http.Get(server.URL + "/api/v1/rooms/lobby")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/v1/rooms/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
