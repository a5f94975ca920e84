// Package bidding validates and applies incoming bids against the ledger.
package bidding

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

type Auditor interface {
	LogBid(ctx context.Context, bid domain.Bid) error
}

type Acceptor struct {
	ledger ledger.Ledger
	sink   notify.Sink
	audit  Auditor
	logger observability.Logger
	clock  func() time.Time
}

func NewAcceptor(l ledger.Ledger, sink notify.Sink, audit Auditor, logger observability.Logger) *Acceptor {
	return &Acceptor{
		ledger: l,
		sink:   sink,
		audit:  audit,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the wall clock, for tests.
func (a *Acceptor) WithClock(clock func() time.Time) *Acceptor {
	a.clock = clock
	return a
}

// PlaceBid applies one bid. The host self-bid check belongs here, not in the
// ledger: it is an identity rule, not an item-state rule.
func (a *Acceptor) PlaceBid(ctx context.Context, ident domain.Identity, itemID uuid.UUID, amount float64) (domain.Bid, error) {
	if ident.Role != domain.RoleBidder {
		return domain.Bid{}, domain.ErrForbidden
	}
	if amount <= 0 {
		return domain.Bid{}, errors.Wrap(domain.ErrInvalidInput, "bid amount must be positive")
	}

	item, err := a.ledger.GetItem(ctx, itemID)
	if err != nil {
		return domain.Bid{}, err
	}
	if item.HostID == ident.SubjectID {
		return domain.Bid{}, errors.Wrap(domain.ErrForbidden, "host cannot bid on own item")
	}

	bid, err := a.ledger.AcceptBid(ctx, itemID, ident.SubjectID, amount, a.clock())
	if err != nil {
		observability.BidsRejected.WithLabelValues(rejectionReason(err)).Inc()
		return domain.Bid{}, err
	}

	observability.BidsAccepted.Inc()
	a.logger.WithField("item_id", itemID).WithField("amount", amount).Info("bid accepted")

	a.sink.Publish(ctx, notify.EventBidPlaced, notify.BidPlaced{
		ItemID:   bid.ItemID,
		BidID:    bid.ID,
		BidderID: bid.BidderID,
		Amount:   bid.Amount,
	})
	if a.audit != nil {
		_ = a.audit.LogBid(ctx, bid)
	}
	return bid, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrBidTooLow):
		return "too_low"
	case errors.Is(err, domain.ErrAuctionClosed):
		return "closed"
	case errors.Is(err, domain.ErrItemUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrItemNotFound):
		return "not_found"
	default:
		return "error"
	}
}
