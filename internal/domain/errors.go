package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyJoined        = errors.New("already joined")
	ErrNotJoined            = errors.New("not joined")
	ErrNotHost              = errors.New("not host")
	ErrHostAlreadyClaimed   = errors.New("host already claimed")
	ErrRoomCapacityExceeded = errors.New("room capacity exceeded")
	ErrInvalidTime          = errors.New("invalid time")
	ErrStaleCommand         = errors.New("stale command")
	ErrUnknownCommand       = errors.New("unknown command")
)

// HostAlreadyClaimedError names the connection currently holding host authority.
type HostAlreadyClaimedError struct {
	HostID string
}

func (e *HostAlreadyClaimedError) Error() string {
	return fmt.Sprintf("host already claimed by %s", e.HostID)
}

func (e *HostAlreadyClaimedError) Is(target error) bool {
	return target == ErrHostAlreadyClaimed
}
