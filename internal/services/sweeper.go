package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vibesocial/backend/repository"
)

// SweeperConfig controls the periodic maintenance pass.
type SweeperConfig struct {
	Interval         time.Duration
	NotificationKeep time.Duration
}

// Sweeper runs in-process maintenance on a schedule: hard-deleting
// notification tombstones past their retention window. The heavier one-off
// repairs live in cmd/maintenance.
type Sweeper struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
	cron          *cron.Cron
	cfg           SweeperConfig
}

func NewSweeper(notifications repository.NotificationRepository, logger *zap.Logger, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.NotificationKeep <= 0 {
		cfg.NotificationKeep = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sweeper{
		notifications: notifications,
		logger:        logger,
		cfg:           cfg,
		cron:          cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep failed", zap.Error(err))
		}
	})

	return s
}

// Start launches the cron scheduler.
func (s *Sweeper) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("sweeper started")
}

// Stop gracefully stops the scheduler.
func (s *Sweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("sweeper stopped")
}

// Sweep runs one maintenance pass synchronously.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.NotificationKeep)
	purged, err := s.notifications.PurgeDeleted(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Info("purged deleted notifications", zap.Int64("count", purged))
	}
	return nil
}
