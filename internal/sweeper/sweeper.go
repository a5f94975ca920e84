// Package sweeper resolves auctions whose close time has passed. It runs on
// a ticker and can also be invoked on demand; both paths share the same
// idempotent per-item resolution, so overlapping passes are harmless.
package sweeper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/artemvolkov/auction-house/internal/domain"
	"github.com/artemvolkov/auction-house/internal/ledger"
	"github.com/artemvolkov/auction-house/internal/notify"
	"github.com/artemvolkov/auction-house/internal/observability"
)

const (
	maxRetries  = 3
	maxParallel = 8
)

type Auditor interface {
	LogResolution(ctx context.Context, res domain.Resolution) error
}

type Sweeper struct {
	ledger ledger.Ledger
	sink   notify.Sink
	audit  Auditor
	logger observability.Logger
	clock  func() time.Time
}

func New(l ledger.Ledger, sink notify.Sink, audit Auditor, logger observability.Logger) *Sweeper {
	return &Sweeper{
		ledger: l,
		sink:   sink,
		audit:  audit,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) WithClock(clock func() time.Time) *Sweeper {
	s.clock = clock
	return s
}

// Run sweeps on a fixed interval until the context is cancelled. A slow pass
// delays the next tick instead of stacking a second pass on top of it.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, s.clock()); err != nil {
				s.logger.WithError(err).Error("sweep pass failed")
			}
		}
	}
}

// Sweep resolves every item due at the given instant and returns how many
// items changed state. Safe to call concurrently with itself.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	defer func() {
		observability.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	due, err := s.ledger.DueItems(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "list due items")
	}

	var resolved int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for _, itemID := range due {
		itemID := itemID
		g.Go(func() error {
			res, err := s.resolveWithRetry(gctx, itemID, now)
			if err != nil {
				// One stuck item must not abort the pass; the next tick
				// picks it up again.
				s.logger.WithError(err).WithField("item_id", itemID).Error("failed to resolve item")
				return nil
			}
			if res.Outcome != domain.OutcomeNoop {
				atomic.AddInt64(&resolved, 1)
				s.announce(gctx, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(resolved), err
	}

	s.reconcile(ctx)
	return int(resolved), nil
}

func (s *Sweeper) resolveWithRetry(ctx context.Context, itemID uuid.UUID, now time.Time) (domain.Resolution, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		res, err := s.ledger.ResolveExpiry(ctx, itemID, now)
		if err == nil {
			return res, nil
		}
		if !transient(err) {
			return domain.Resolution{}, err
		}
		lastErr = err

		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return domain.Resolution{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return domain.Resolution{}, errors.Wrapf(lastErr, "gave up after %d attempts", maxRetries)
}

// Business errors are final; only infrastructure failures (serialization
// conflicts, connectivity) get another attempt.
func transient(err error) bool {
	return !errors.Is(err, domain.ErrItemNotFound)
}

func (s *Sweeper) announce(ctx context.Context, res domain.Resolution) {
	observability.ItemsResolved.WithLabelValues(string(res.Outcome)).Inc()

	event := notify.AuctionEnded{ItemID: res.ItemID}
	if res.Outcome == domain.OutcomeSold {
		winner, price, orderID := res.WinnerID, res.FinalPrice, res.OrderID
		event.WinnerID = &winner
		event.FinalPrice = &price
		event.OrderID = &orderID
		s.logger.WithField("item_id", res.ItemID).WithField("order_id", orderID).Info("auction sold")
	} else {
		s.logger.WithField("item_id", res.ItemID).Info("auction ended without bids")
	}
	s.sink.Publish(ctx, notify.EventAuctionEnded, event)

	if s.audit != nil {
		_ = s.audit.LogResolution(ctx, res)
	}
}

// reconcile repairs sold items that lost their order. Resolution writes the
// order in the same transaction as the sold transition, so finding one means
// something outside this process touched the store; it is repaired and
// reported, never silently ignored.
func (s *Sweeper) reconcile(ctx context.Context) {
	orphans, err := s.ledger.SoldWithoutOrder(ctx)
	if err != nil {
		s.logger.WithError(err).Error("orphaned sale check failed")
		return
	}
	for _, itemID := range orphans {
		order, err := s.ledger.RepairOrder(ctx, itemID)
		if err != nil {
			s.logger.WithError(err).WithField("item_id", itemID).Error("failed to repair orphaned sale")
			continue
		}
		observability.ItemsResolved.WithLabelValues("repaired").Inc()
		s.logger.WithField("item_id", itemID).WithField("order_id", order.ID).Warn("repaired sold item without order")
	}
}
