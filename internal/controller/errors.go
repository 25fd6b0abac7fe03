package controller

import (
	"context"
	"errors"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

const (
	reasonNotHost              = "NOT_HOST"
	reasonHostAlreadyClaimed   = "HOST_ALREADY_CLAIMED"
	reasonAlreadyJoined        = "ALREADY_JOINED"
	reasonRoomCapacityExceeded = "ROOM_CAPACITY_EXCEEDED"
	reasonNotInRoom            = "NOT_IN_ROOM"
	reasonValidationError      = "VALIDATION_ERROR"
	reasonStaleCommand         = "STALE_COMMAND"
	reasonInternal             = "INTERNAL"
)

type Ack struct {
	OK           bool                        `json:"ok"`
	Room         *domain.RoomState           `json:"room,omitempty"`
	Reason       string                      `json:"reason,omitempty"`
	Message      string                      `json:"message,omitempty"`
	HostSocketID string                      `json:"hostSocketId,omitempty"`
	SocketID     string                      `json:"socketId,omitempty"`
	Errors       []validator.ValidationError `json:"errors,omitempty"`
}

func okAck() *Ack {
	return &Ack{OK: true}
}

func roomAck(state domain.RoomState) *Ack {
	return &Ack{OK: true, Room: &state}
}

// joinAck also tells the joiner its own connection id.
func joinAck(state domain.RoomState, connectionID string) *Ack {
	return &Ack{OK: true, Room: &state, SocketID: connectionID}
}

type validationError struct {
	errors []validator.ValidationError
}

func (e *validationError) Error() string {
	return "validation failed"
}

func (c *controller) validateInput(input any) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return &validationError{errors: errs}
	}

	return nil
}

// errorToAck maps handler errors to the ack sent back to the caller. Errors
// outside the known set are logged and reported as INTERNAL.
func (c *controller) errorToAck(ctx context.Context, err error) any {
	ack := &Ack{OK: false, Message: err.Error()}

	var (
		validationErr *validationError
		claimedErr    *domain.HostAlreadyClaimedError
	)
	switch {
	case errors.As(err, &validationErr):
		ack.Reason = reasonValidationError
		ack.Errors = validationErr.errors
	case errors.Is(err, wsrouter.ErrInvalidPayload),
		errors.Is(err, wsrouter.ErrUnknownType),
		errors.Is(err, domain.ErrInvalidTime):
		ack.Reason = reasonValidationError
	case errors.As(err, &claimedErr):
		ack.Reason = reasonHostAlreadyClaimed
		ack.HostSocketID = claimedErr.HostID
	case errors.Is(err, domain.ErrNotHost):
		ack.Reason = reasonNotHost
	case errors.Is(err, domain.ErrAlreadyJoined):
		ack.Reason = reasonAlreadyJoined
	case errors.Is(err, domain.ErrRoomCapacityExceeded):
		ack.Reason = reasonRoomCapacityExceeded
	case errors.Is(err, room.ErrNotInRoom), errors.Is(err, domain.ErrNotJoined):
		ack.Reason = reasonNotInRoom
	case errors.Is(err, domain.ErrStaleCommand):
		ack.Reason = reasonStaleCommand
	default:
		c.logger.ErrorContext(ctx, "websocket handler failed", "error", err)
		ack.Reason = reasonInternal
		ack.Message = "internal error"
	}

	return ack
}
