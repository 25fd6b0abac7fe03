package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
)

const (
	AckType   = "ack"
	ErrorType = "error"
)

var (
	ErrUnknownType    = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNoAckExpected  = errors.New("message does not expect an ack")
	ErrAlreadyAcked   = errors.New("message already acked")
)

// Message is the inbound envelope. A message carrying AckID expects exactly one Ack back.
type Message struct {
	Type    string          `json:"type"`
	AckID   *uint64         `json:"ack_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Ack struct {
	Type    string `json:"type"`
	AckID   uint64 `json:"ack_id"`
	Payload any    `json:"payload"`
}

// Conn is the connection side the router reads messages from and writes replies to.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
}

// HandlerFunc handles a decoded payload and returns the ack payload.
type HandlerFunc[T any] func(ctx context.Context, conn Conn, input T) (any, error)

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

// ErrorHandler turns a handler, decode or routing error into an ack payload.
type ErrorHandler func(ctx context.Context, err error) any

type route struct {
	decode  func(json.RawMessage) (any, error)
	handler HandlerFunc[any]
}

type WSRouter struct {
	routes      map[string]route
	middlewares []Middleware
	onError     ErrorHandler
}

func New(onError ErrorHandler) *WSRouter {
	if onError == nil {
		onError = func(_ context.Context, err error) any {
			return map[string]any{"ok": false, "message": err.Error()}
		}
	}

	return &WSRouter{
		routes:  make(map[string]route),
		onError: onError,
	}
}

// Use appends middleware. It only wraps handlers registered after the call.
func (r *WSRouter) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	wrapped := HandlerFunc[any](func(ctx context.Context, conn Conn, payload any) (any, error) {
		return handler(ctx, conn, payload.(T))
	})
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	r.routes[messageType] = route{
		decode: func(raw json.RawMessage) (any, error) {
			var input T
			if len(raw) == 0 || string(raw) == "null" {
				return input, nil
			}
			if err := json.Unmarshal(raw, &input); err != nil {
				return input, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
			return input, nil
		},
		handler: wrapped,
	}
}

// ServeConn reads messages until the connection fails and dispatches them in order.
func (r *WSRouter) ServeConn(ctx context.Context, conn Conn) error {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if err := r.serveMessage(ctx, conn, &msg); err != nil {
			return err
		}
	}
}

func (r *WSRouter) serveMessage(ctx context.Context, conn Conn, msg *Message) error {
	ctx = context.WithValue(ctx, messageTypeKey, msg.Type)
	state := &ackState{ackID: msg.AckID}
	ctx = context.WithValue(ctx, ackStateKey, state)

	rt, ok := r.routes[msg.Type]
	if !ok {
		payload := r.onError(ctx, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type))
		if msg.AckID == nil {
			return conn.WriteJSON(&Ack{Type: ErrorType, Payload: payload})
		}
		return r.reply(conn, msg, payload)
	}

	var (
		payload any
		err     error
	)
	input, err := rt.decode(msg.Payload)
	if err == nil {
		payload, err = rt.handler(ctx, conn, input)
	}
	if err != nil {
		payload = r.onError(ctx, err)
	}

	if state.sent.Load() {
		return nil
	}

	return r.reply(conn, msg, payload)
}

type ackState struct {
	ackID *uint64
	sent  atomic.Bool
}

// WriteAck sends the ack of the message being handled before the handler
// returns, so it can be ordered ahead of later writes to the same conn. The
// router then drops whatever the handler returns. It may be called from
// another goroutine as long as the handler has not returned yet.
func WriteAck(ctx context.Context, conn Conn, payload any) error {
	state, ok := ctx.Value(ackStateKey).(*ackState)
	if !ok || state.ackID == nil {
		return ErrNoAckExpected
	}

	if !state.sent.CompareAndSwap(false, true) {
		return ErrAlreadyAcked
	}

	return conn.WriteJSON(&Ack{
		Type:    AckType,
		AckID:   *state.ackID,
		Payload: payload,
	})
}

func (r *WSRouter) reply(conn Conn, msg *Message, payload any) error {
	if msg.AckID == nil {
		return nil
	}

	return conn.WriteJSON(&Ack{
		Type:    AckType,
		AckID:   *msg.AckID,
		Payload: payload,
	})
}
