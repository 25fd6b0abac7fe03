package client

import (
	"errors"
	"fmt"

	"github.com/sharetube/watchparty/internal/domain"
)

var (
	ErrMediaNotReady    = errors.New("media not ready")
	ErrPlaybackRefused  = errors.New("playback refused")
	ErrAckTimeout       = errors.New("ack timeout")
	ErrSessionClosed    = errors.New("session closed")
	ErrNotInRoom        = errors.New("not in room")
	ErrValidation       = errors.New("validation error")
	ErrUnexpectedAck    = errors.New("unexpected ack")
	errUnknownAckReason = errors.New("request rejected")
)

// AckError is a rejected request. It matches the domain error named by its
// reason with errors.Is.
type AckError struct {
	Reason  string
	Message string
	HostID  string
}

func (e *AckError) Error() string {
	if e.Message == "" {
		return e.Reason
	}

	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *AckError) Unwrap() error {
	switch e.Reason {
	case "NOT_HOST":
		return domain.ErrNotHost
	case "HOST_ALREADY_CLAIMED":
		return &domain.HostAlreadyClaimedError{HostID: e.HostID}
	case "ALREADY_JOINED":
		return domain.ErrAlreadyJoined
	case "ROOM_CAPACITY_EXCEEDED":
		return domain.ErrRoomCapacityExceeded
	case "STALE_COMMAND":
		return domain.ErrStaleCommand
	case "NOT_IN_ROOM":
		return ErrNotInRoom
	case "VALIDATION_ERROR":
		return ErrValidation
	default:
		return errUnknownAckReason
	}
}
