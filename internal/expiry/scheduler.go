// Package expiry force-cancels orders stuck in PENDING beyond the payment
// grace window.
package expiry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kartelle/storefront/internal/domain/order"
)

// Canceler is the slice of the lifecycle service the scheduler needs. It is
// deliberately the same cancellation entry point interactive requests use, so
// system-initiated cancellation carries identical invariants.
type Canceler interface {
	CancelOrder(ctx context.Context, orderID string, actor order.Actor, reason string) (*order.Order, error)
}

// Finder locates expired PENDING orders.
type Finder interface {
	FindExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// Config controls scheduler timing.
type Config struct {
	// Interval between runs.
	Interval time.Duration
	// GraceWindow is how long a PENDING order may wait for payment.
	GraceWindow time.Duration
	// BatchSize caps the number of orders canceled per run.
	BatchSize int
}

// Scheduler periodically cancels expired PENDING orders. Each order's
// cancellation is its own transaction; a failure on one order is logged and
// does not abort the rest of the batch.
type Scheduler struct {
	cfg    Config
	finder Finder
	svc    Canceler
	lg     *zap.Logger
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Scheduler.
func New(cfg Config, finder Finder, svc Canceler, lg *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		finder: finder,
		svc:    svc,
		lg:     lg,
		now:    time.Now,
	}
}

// Start launches the scheduler loop. It runs until Stop is called or ctx is
// canceled.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop terminates the scheduler loop and waits for it to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// RunOnce performs a single expiry sweep.
func (s *Scheduler) RunOnce(ctx context.Context) {
	deadline := s.now().Add(-s.cfg.GraceWindow)

	ids, err := s.finder.FindExpiredPending(ctx, deadline, s.cfg.BatchSize)
	if err != nil {
		s.lg.Error("find expired orders", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}

	canceled := 0
	for _, id := range ids {
		if _, err := s.svc.CancelOrder(ctx, id, order.SystemActor, order.ExpiryReason); err != nil {
			// An order paid between the sweep query and the cancellation
			// lands here with InvalidState; that is the losing side of the
			// race, not a fault.
			s.lg.Warn("cancel expired order",
				zap.String("order_id", id),
				zap.Error(err),
			)
			continue
		}
		canceled++
	}

	s.lg.Info("expiry sweep finished",
		zap.Int("expired", len(ids)),
		zap.Int("canceled", canceled),
	)
}
