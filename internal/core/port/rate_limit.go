package port

import (
	"context"
	"time"
)

// RateLimitStore counts attempts per identifier over a sliding window.
type RateLimitStore interface {
	Hit(ctx context.Context, identifier string, window time.Duration, at time.Time) (int, error)
}
