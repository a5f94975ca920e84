// Package checkout finalizes pending orders: the winning bidder supplies
// payment and shipping references and the order and item complete together.
package checkout

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/artemvolkov/auction-house/internal/domain"
	"github.com/artemvolkov/auction-house/internal/ledger"
	"github.com/artemvolkov/auction-house/internal/notify"
	"github.com/artemvolkov/auction-house/internal/observability"
)

const maxRetries = 3

type Auditor interface {
	LogCheckout(ctx context.Context, order domain.Order) error
}

type Finalizer struct {
	ledger ledger.Ledger
	sink   notify.Sink
	audit  Auditor
	logger observability.Logger
}

func NewFinalizer(l ledger.Ledger, sink notify.Sink, audit Auditor, logger observability.Logger) *Finalizer {
	return &Finalizer{ledger: l, sink: sink, audit: audit, logger: logger}
}

// Complete finalizes one order. Serialization conflicts are retried a bounded
// number of times; business rejections (ErrAlreadyCompleted, ErrNotSold,
// ErrOrderNotFound) are returned immediately and never retried.
func (f *Finalizer) Complete(ctx context.Context, ident domain.Identity, orderID uuid.UUID, paymentRef, addressRef string) (domain.Order, error) {
	if ident.Role != domain.RoleBidder {
		return domain.Order{}, domain.ErrForbidden
	}
	if paymentRef == "" || addressRef == "" {
		return domain.Order{}, errors.Wrap(domain.ErrInvalidInput, "payment and address references are required")
	}

	var order domain.Order
	var err error
	for i := 0; i < maxRetries; i++ {
		order, err = f.ledger.CompleteCheckout(ctx, orderID, ident.SubjectID, paymentRef, addressRef)
		if !errors.Is(err, domain.ErrSerializationFailure) {
			break
		}
		backoff := time.Duration(1<<i) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return domain.Order{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return domain.Order{}, err
	}

	observability.OrdersCompleted.Inc()
	f.logger.WithField("order_id", order.ID).WithField("item_id", order.ItemID).Info("checkout completed")

	f.sink.Publish(ctx, notify.EventOrderDone, notify.OrderCompleted{
		OrderID: order.ID,
		ItemID:  order.ItemID,
	})
	if f.audit != nil {
		_ = f.audit.LogCheckout(ctx, order)
	}
	return order, nil
}
