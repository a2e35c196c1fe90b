package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrQueueFull    = errors.New("notification queue is full")
	ErrQueueStopped = errors.New("notification queue is stopped")
)

// MemoryQueue is a bounded in-process queue served by a fixed worker pool.
// Jobs still buffered at shutdown are not lost: their reservations stay
// pending and the sweeper enqueues them again.
type MemoryQueue struct {
	jobs    chan Job
	handler Handler
	workers int
	logger  *zap.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewMemoryQueue(size, workers int, handler Handler, logger *zap.Logger) *MemoryQueue {
	if size <= 0 {
		size = 100
	}
	if workers <= 0 {
		workers = 1
	}
	return &MemoryQueue{
		jobs:    make(chan Job, size),
		handler: handler,
		workers: workers,
		logger:  logger,
	}
}

// Publish never blocks; a full buffer returns ErrQueueFull.
func (q *MemoryQueue) Publish(_ context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.stopped {
		return ErrQueueStopped
	}

	select {
	case q.jobs <- job:
		metrics.NotificationQueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the workers.
func (q *MemoryQueue) Start(ctx context.Context) error {
	q.logger.Info("Starting notification workers", zap.Int("workers", q.workers))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run(ctx)
	}
	return nil
}

// Stop closes the queue and waits for workers to finish the buffered jobs.
func (q *MemoryQueue) Stop() error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("Notification workers stopped")
	return nil
}

func (q *MemoryQueue) run(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			metrics.NotificationQueueDepth.Dec()
			q.handler(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}
