package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

func systemClock() time.Time { return time.Now().UTC() }

// publishEvent fans the event out after the entity has been persisted.
// Subscriber failures are logged; the command that produced the event has
// already succeeded.
func publishEvent(ctx context.Context, publisher port.EventPublisher, logger *zap.Logger, event domain.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish domain event failed",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID()),
			zap.Error(err),
		)
	}
}

// withEntityLock runs fn while holding the lock for key.
func withEntityLock(ctx context.Context, locker port.EntityLocker, key string, fn func() error) error {
	if locker == nil {
		return fn()
	}
	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()
	return fn()
}

func lockKey(entity, id string) string {
	return entity + ":" + id
}
