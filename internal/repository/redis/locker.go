package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"

	"github.com/arklim/book-buyback/internal/core/port"
)

const (
	defaultLockPrefix = "books:lock"
	defaultLockTTL    = 10 * time.Second
	defaultLockRetry  = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = red.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockerConfig tunes the Redis entity lock.
type LockerConfig struct {
	KeyPrefix string
	// TTL bounds how long a crashed holder can block the key.
	TTL   time.Duration
	Retry time.Duration
}

// EntityLocker serializes commands per entity across processes using SET NX PX.
type EntityLocker struct {
	client *red.Client
	cfg    LockerConfig
}

// NewEntityLocker constructs a locker; zero config values fall back to defaults.
func NewEntityLocker(client *red.Client, cfg LockerConfig) *EntityLocker {
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = defaultLockPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultLockTTL
	}
	if cfg.Retry <= 0 {
		cfg.Retry = defaultLockRetry
	}
	return &EntityLocker{client: client, cfg: cfg}
}

// Lock polls until the key is acquired or ctx ends.
func (l *EntityLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("redis locker not configured")
	}

	redisKey := l.key(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.Retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis setnx %s: %w", redisKey, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *EntityLocker) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be cancelled by the time unlock runs.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
		})
	}
}

func (l *EntityLocker) key(key string) string {
	return fmt.Sprintf("%s:%s", l.cfg.KeyPrefix, key)
}

var _ port.EntityLocker = (*EntityLocker)(nil)
