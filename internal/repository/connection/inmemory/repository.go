package inmemory

import (
	"log/slog"
	"sync"

	"github.com/sharetube/watchparty/internal/repository/connection"
)

type client struct {
	send   chan []byte
	roomID string
	closed bool
}

type repo struct {
	clients   map[string]*client
	queueSize int
	logger    *slog.Logger
	mu        sync.RWMutex
}

func NewRepo(queueSize int, logger *slog.Logger) *repo {
	return &repo{
		clients:   make(map[string]*client),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Add registers a connection and returns its outbound queue. The queue is
// closed by Close or when a Send finds it full.
func (r *repo) Add(connectionID string) (<-chan []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("connection.inmemory.Add", "connection_id", connectionID)
	if _, ok := r.clients[connectionID]; ok {
		return nil, connection.ErrAlreadyExists
	}

	c := &client{send: make(chan []byte, r.queueSize)}
	r.clients[connectionID] = c

	return c.send, nil
}

// Send enqueues msg without blocking. A full queue closes the connection so a
// slow reader can not stall the room that is broadcasting to it.
func (r *repo) Send(connectionID string, msg []byte) error {
	r.mu.RLock()
	c, ok := r.clients[connectionID]
	if !ok {
		r.mu.RUnlock()
		return connection.ErrNotFound
	}
	if c.closed {
		r.mu.RUnlock()
		return connection.ErrClosed
	}

	select {
	case c.send <- msg:
		r.mu.RUnlock()
		return nil
	default:
	}
	r.mu.RUnlock()

	r.logger.Warn("connection send queue full, closing", "connection_id", connectionID)
	if err := r.Close(connectionID); err != nil {
		return err
	}

	return connection.ErrQueueFull
}

// Close closes the outbound queue. The connection stays registered, with its
// room id, until Remove.
func (r *repo) Close(connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[connectionID]
	if !ok {
		return connection.ErrNotFound
	}

	if !c.closed {
		c.closed = true
		close(c.send)
	}

	return nil
}

func (r *repo) Remove(connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("connection.inmemory.Remove", "connection_id", connectionID)
	c, ok := r.clients[connectionID]
	if !ok {
		return connection.ErrNotFound
	}

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	delete(r.clients, connectionID)

	return nil
}

func (r *repo) SetRoomID(connectionID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[connectionID]
	if !ok {
		return connection.ErrNotFound
	}

	c.roomID = roomID
	return nil
}

// GetRoomID returns the room the connection is in, or "" when it is in none.
func (r *repo) GetRoomID(connectionID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[connectionID]
	if !ok {
		return "", connection.ErrNotFound
	}

	return c.roomID, nil
}

func (r *repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}
