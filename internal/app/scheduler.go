package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"go.uber.org/zap"
)

const sweepBatch = 50

// UndeliveredStore hands out reservations whose confirmation was not sent,
// already reset to pending.
type UndeliveredStore interface {
	ClaimUndelivered(ctx context.Context, failedBefore, leaseBefore time.Time, maxAttempts, limit int) ([]*model.Reservation, error)
}

// Requeuer schedules a confirmation again.
type Requeuer interface {
	Requeue(ctx context.Context, res *model.Reservation) error
}

// Scheduler periodically re-enqueues confirmations that failed, or that sat
// pending or sending for longer than the lease, e.g. because the process
// stopped with jobs still queued. The lease must exceed the worst-case time a
// job spends queued plus in delivery.
type Scheduler struct {
	store       UndeliveredStore
	requeuer    Requeuer
	interval    time.Duration
	lease       time.Duration
	maxAttempts int
	logger      *zap.Logger
	now         func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(store UndeliveredStore, requeuer Requeuer, interval, lease time.Duration, maxAttempts int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:       store,
		requeuer:    requeuer,
		interval:    interval,
		lease:       lease,
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
		stopChan:    make(chan struct{}),
	}
}

// Start runs the sweep loop in the background.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting notification sweeper",
		zap.Duration("interval", s.interval),
		zap.Duration("lease", s.lease),
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping notification sweeper")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Notification sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Notification sweeper cancelled")
			return
		}
	}
}

// Sweep re-enqueues one batch and returns how many jobs were queued.
func (s *Scheduler) Sweep(ctx context.Context) int {
	now := s.now()
	claimed, err := s.store.ClaimUndelivered(ctx, now.Add(-s.interval), now.Add(-s.lease), s.maxAttempts, sweepBatch)
	if err != nil {
		s.logger.Error("Failed to claim undelivered reservations", zap.Error(err))
		return 0
	}

	queued := 0
	for _, res := range claimed {
		// a failed publish leaves the row pending; it comes back after the lease
		if err := s.requeuer.Requeue(ctx, res); err != nil {
			s.logger.Warn("Failed to requeue confirmation",
				zap.String("reservation_id", res.ID),
				zap.Error(err),
			)
			continue
		}
		queued++
	}

	if queued > 0 {
		metrics.NotificationsRequeued.Add(float64(queued))
		s.logger.Info("Requeued confirmations", zap.Int("count", queued))
	}
	return queued
}
