// Package ledger defines the single authority over item state. All mutations
// of an item's price, status and winner go through one of the three atomic
// operations below; per item they are strictly serialized, across items they
// are independent.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/artemvolkov/auction-house/internal/domain"
)

type Ledger interface {
	// AcceptBid records a bid and advances the current price in one
	// indivisible step. Fails with domain.ErrItemNotFound,
	// domain.ErrAuctionClosed, domain.ErrItemUnavailable or
	// domain.ErrBidTooLow.
	AcceptBid(ctx context.Context, itemID, bidderID uuid.UUID, amount float64, now time.Time) (domain.Bid, error)

	// ResolveExpiry transitions an overdue available item to sold or ended
	// exactly once, creating the order in the same atomic unit on a sale.
	// Idempotent: callers racing each other observe OutcomeNoop.
	ResolveExpiry(ctx context.Context, itemID uuid.UUID, now time.Time) (domain.Resolution, error)

	// CompleteCheckout sets the order's payment and address references and
	// moves order and item to completed together, or not at all. Fails with
	// domain.ErrOrderNotFound (absent or not owned by bidderID),
	// domain.ErrAlreadyCompleted or domain.ErrNotSold.
	CompleteCheckout(ctx context.Context, orderID, bidderID uuid.UUID, paymentRef, addressRef string) (domain.Order, error)

	// DueItems snapshots ids of available items whose close time has passed.
	DueItems(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// SoldWithoutOrder reports sold items that have no order. A same-unit
	// resolve cannot produce these; the sweeper still checks every pass.
	SoldWithoutOrder(ctx context.Context) ([]uuid.UUID, error)

	// RepairOrder recreates the missing order for a sold item from its
	// recorded winner and price. Idempotent: returns the existing order if
	// one is already present. Fails with domain.ErrNotSold when the item is
	// not in the sold state.
	RepairOrder(ctx context.Context, itemID uuid.UUID) (domain.Order, error)

	CreateItem(ctx context.Context, item domain.Item) error
	GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListBids(ctx context.Context, itemID uuid.UUID) ([]domain.Bid, error)
}
