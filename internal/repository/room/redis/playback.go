package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
	omitnilpointers "github.com/sharetube/watchparty/pkg/omit-nil-pointers"
)
