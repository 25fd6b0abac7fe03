package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
)

// Join order lives in a sorted set scored by position, display names in a
// hash keyed by connection id.
