package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HoldExpirer cancels orders whose inventory hold has lapsed.
type HoldExpirer interface {
	ExpireHolds(ctx context.Context, limit int) (int, error)
}

// ExpiryScheduler runs the hold expiry sweep on a cron schedule.
type ExpiryScheduler struct {
	cron     *cron.Cron
	expirer  HoldExpirer
	schedule string
	batch    int
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	baseCtx context.Context
}

// NewExpiryScheduler validates schedule and registers the sweep. batch bounds
// the number of orders expired per run; zero means no bound.
func NewExpiryScheduler(expirer HoldExpirer, schedule string, batch int, logger *zap.Logger) (*ExpiryScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExpiryScheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expirer:  expirer,
		schedule: schedule,
		batch:    batch,
		timeout:  30 * time.Second,
		logger:   logger,
		baseCtx:  context.Background(),
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("scheduler: invalid expiry schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the cron loop and blocks until ctx is done. In-flight sweeps are
// allowed to finish before Run returns.
func (s *ExpiryScheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: already running")
	}
	s.running = true
	s.baseCtx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("order expiry scheduler started", zap.String("schedule", s.schedule), zap.Int("batch", s.batch))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("order expiry scheduler stopped")
	return nil
}

// Sweep performs one expiry pass.
func (s *ExpiryScheduler) Sweep(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	expired, err := s.expirer.ExpireHolds(ctx, s.batch)
	if err != nil {
		return expired, fmt.Errorf("expire holds: %w", err)
	}
	return expired, nil
}

func (s *ExpiryScheduler) tick() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	// Cancellation of the run context still lets the current sweep finish.
	expired, err := s.Sweep(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Warn("order expiry sweep failed", zap.Int("expired", expired), zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("expired order holds", zap.Int("count", expired))
	}
}
