package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

const (
	defaultAckTimeout = 5 * time.Second
	writeWait         = 10 * time.Second

	stateMessageType = "room:state"
)

// StateHandler receives authoritative room snapshots. It runs on the session's
// read goroutine and must not wait on session requests.
type StateHandler func(domain.RoomState)

type Config struct {
	URL        string
	AckTimeout time.Duration
	Dialer     *websocket.Dialer
	Clock      clockwork.Clock
	Logger     *slog.Logger
}

type ack struct {
	OK           bool              `json:"ok"`
	Room         *domain.RoomState `json:"room"`
	Reason       string            `json:"reason"`
	Message      string            `json:"message"`
	HostSocketID string            `json:"hostSocketId"`
	SocketID     string            `json:"socketId"`
}

type inbound struct {
	Type    string          `json:"type"`
	AckID   uint64          `json:"ack_id"`
	Payload json.RawMessage `json:"payload"`
}

// Session owns one websocket connection to the server. Requests wait for their
// ack; snapshots are delivered to the state handler in arrival order, dropping
// those older than the newest one seen.
type Session struct {
	conn       *websocket.Conn
	ackTimeout time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu       sync.Mutex
	pending  map[uint64]chan ack
	handler  StateHandler
	roomID   string
	selfID   string
	latest   int64
	hasState bool

	done      chan struct{}
	closeOnce sync.Once
}

func Dial(ctx context.Context, cfg *Config) (*Session, error) {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.URL, err)
	}

	return newSession(conn, cfg), nil
}

func newSession(conn *websocket.Conn, cfg *Config) *Session {
	ackTimeout := cfg.AckTimeout
	if ackTimeout <= 0 {
		ackTimeout = defaultAckTimeout
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		conn:       conn,
		ackTimeout: ackTimeout,
		clock:      clock,
		logger:     logger,
		pending:    make(map[uint64]chan ack),
		done:       make(chan struct{}),
	}
	go s.readLoop()

	return s
}

func (s *Session) SetStateHandler(h StateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handler = h
}

// SelfID is the session's connection id, known once it has joined a room.
func (s *Session) SelfID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selfID
}

func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.roomID
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		if cerr := s.conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	})
	<-s.done

	return err
}

func (s *Session) Join(ctx context.Context, roomID, name string) (domain.RoomState, error) {
	a, err := s.request(ctx, "room:join", map[string]any{"roomId": roomID, "name": name})
	if err != nil {
		return domain.RoomState{}, err
	}
	if a.Room == nil {
		return domain.RoomState{}, fmt.Errorf("%w: join without room", ErrUnexpectedAck)
	}

	s.mu.Lock()
	s.roomID = roomID
	if a.SocketID != "" {
		s.selfID = a.SocketID
	}
	s.mu.Unlock()

	return *a.Room, nil
}

func (s *Session) Leave(ctx context.Context) error {
	if _, err := s.request(ctx, "room:leave", map[string]any{}); err != nil {
		return err
	}

	s.mu.Lock()
	s.roomID = ""
	s.hasState = false
	s.mu.Unlock()

	return nil
}

func (s *Session) ClaimHost(ctx context.Context) (domain.RoomState, error) {
	a, err := s.request(ctx, "host:claim", map[string]any{"roomId": s.RoomID()})
	if err != nil {
		return domain.RoomState{}, err
	}
	if a.Room == nil || a.Room.HostID == nil {
		return domain.RoomState{}, fmt.Errorf("%w: claim without host", ErrUnexpectedAck)
	}

	s.mu.Lock()
	s.selfID = *a.Room.HostID
	s.mu.Unlock()

	return *a.Room, nil
}

func (s *Session) SetVideo(ctx context.Context, videoID, streamURL string) error {
	_, err := s.request(ctx, "room:video:set", map[string]any{
		"roomId":    s.RoomID(),
		"videoId":   videoID,
		"streamUrl": streamURL,
	})
	return err
}

func (s *Session) Play(ctx context.Context, t float64) error {
	return s.playerCommand(ctx, "player:play", t)
}

func (s *Session) Pause(ctx context.Context, t float64) error {
	return s.playerCommand(ctx, "player:pause", t)
}

func (s *Session) Seek(ctx context.Context, t float64) error {
	return s.playerCommand(ctx, "player:seek", t)
}

func (s *Session) playerCommand(ctx context.Context, messageType string, t float64) error {
	_, err := s.request(ctx, messageType, map[string]any{
		"roomId": s.RoomID(),
		"time":   t,
		"ts":     s.clock.Now().UnixMilli(),
	})
	return err
}

// Ping sends the host heartbeat without waiting for anything back.
func (s *Session) Ping(t float64, playing bool) error {
	return s.write(wsrouter.Message{
		Type: "player:state",
		Payload: mustMarshal(map[string]any{
			"roomId":  s.RoomID(),
			"time":    t,
			"playing": playing,
			"ts":      s.clock.Now().UnixMilli(),
		}),
	})
}

func (s *Session) request(ctx context.Context, messageType string, payload any) (ack, error) {
	id := s.nextID.Add(1)
	reply := make(chan ack, 1)

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return ack{}, ErrSessionClosed
	default:
	}
	s.pending[id] = reply
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if err := s.write(wsrouter.Message{
		Type:    messageType,
		AckID:   &id,
		Payload: mustMarshal(payload),
	}); err != nil {
		return ack{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.ackTimeout)
	defer cancel()

	select {
	case a := <-reply:
		if !a.OK {
			return a, &AckError{Reason: a.Reason, Message: a.Message, HostID: a.HostSocketID}
		}
		return a, nil
	case <-s.done:
		return ack{}, ErrSessionClosed
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ack{}, fmt.Errorf("%w: %s", ErrAckTimeout, messageType)
		}
		return ack{}, ctx.Err()
	}
}

func (s *Session) write(msg wsrouter.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write %s: %w", msg.Type, err)
	}

	return nil
}

func (s *Session) readLoop() {
	defer func() {
		s.conn.Close()
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
	}()

	for {
		var msg inbound
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("session read failed", "error", err)
			}
			return
		}

		switch msg.Type {
		case wsrouter.AckType:
			s.handleAck(msg)
		case stateMessageType:
			var state domain.RoomState
			if err := json.Unmarshal(msg.Payload, &state); err != nil {
				s.logger.Warn("invalid room state", "error", err)
				continue
			}
			s.deliver(state)
		default:
			s.logger.Debug("ignoring message", "message_type", msg.Type)
		}
	}
}

func (s *Session) handleAck(msg inbound) {
	var a ack
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		s.logger.Warn("invalid ack", "ack_id", msg.AckID, "error", err)
		return
	}

	// room snapshots carried by acks go through the handler before any later
	// room:state is read
	if a.OK && a.Room != nil {
		s.deliver(*a.Room)
	}

	s.mu.Lock()
	reply, ok := s.pending[msg.AckID]
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("ack without pending request", "ack_id", msg.AckID)
		return
	}

	select {
	case reply <- a:
	default:
		s.logger.Debug("duplicate ack", "ack_id", msg.AckID)
	}
}

// deliver passes state to the handler unless a newer snapshot was already seen.
func (s *Session) deliver(state domain.RoomState) {
	s.mu.Lock()
	if s.hasState && state.Playback.UpdatedAt < s.latest {
		s.mu.Unlock()
		s.logger.Debug("dropping stale room state", "updated_at", state.Playback.UpdatedAt, "latest", s.latest)
		return
	}
	s.latest = state.Playback.UpdatedAt
	s.hasState = true
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h(state)
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}
