package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/artemvolkov/auction-house/internal/domain"
)

// lockItem reads the item row under FOR UPDATE so every mutation of the same
// item runs strictly after the previous one commits or rolls back.
func lockItem(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) (*domain.Item, error) {
	var item domain.Item
	err := tx.QueryRow(ctx, `
		SELECT id, host_id, name, description, category, initial_price, current_price, close_time, status, winning_bidder, created_at
		FROM items WHERE id = $1 FOR UPDATE
	`, itemID).Scan(&item.ID, &item.HostID, &item.Name, &item.Description, &item.Category,
		&item.InitialPrice, &item.CurrentPrice, &item.CloseTime, &item.Status, &item.WinningBidder, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) AcceptBid(ctx context.Context, itemID, bidderID uuid.UUID, amount float64, now time.Time) (domain.Bid, error) {
	var bid domain.Bid
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		item, err := lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if !now.Before(item.CloseTime) {
			return domain.ErrAuctionClosed
		}
		if item.Status != domain.ItemAvailable {
			return domain.ErrItemUnavailable
		}
		if amount <= item.CurrentPrice {
			return domain.ErrBidTooLow
		}

		bid = domain.NewBid(itemID, bidderID, amount, now)
		_, err = tx.Exec(ctx, `
			INSERT INTO bids (id, item_id, bidder_id, amount, placed_at)
			VALUES ($1, $2, $3, $4, $5)
		`, bid.ID, bid.ItemID, bid.BidderID, bid.Amount, bid.PlacedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE items SET current_price = $2 WHERE id = $1
		`, itemID, amount)
		return err
	})
	if err != nil {
		return domain.Bid{}, err
	}
	return bid, nil
}

func (r *Repository) ResolveExpiry(ctx context.Context, itemID uuid.UUID, now time.Time) (domain.Resolution, error) {
	var res domain.Resolution
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		item, err := lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.Status != domain.ItemAvailable || now.Before(item.CloseTime) {
			res = domain.Resolution{Outcome: domain.OutcomeNoop, ItemID: itemID}
			return nil
		}

		var winner domain.Bid
		err = tx.QueryRow(ctx, `
			SELECT id, item_id, bidder_id, amount, placed_at
			FROM bids WHERE item_id = $1
			ORDER BY amount DESC, placed_at ASC, id ASC
			LIMIT 1
		`, itemID).Scan(&winner.ID, &winner.ItemID, &winner.BidderID, &winner.Amount, &winner.PlacedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			_, err = tx.Exec(ctx, `
				UPDATE items SET status = 'ended' WHERE id = $1
			`, itemID)
			if err != nil {
				return err
			}
			res = domain.Resolution{Outcome: domain.OutcomeEnded, ItemID: itemID, HostID: item.HostID}
			return nil
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE items SET status = 'sold', winning_bidder = $2, current_price = $3 WHERE id = $1
		`, itemID, winner.BidderID, winner.Amount)
		if err != nil {
			return err
		}

		// Order creation shares the transaction with the sold transition, so
		// a sale without an order cannot be committed.
		order := domain.NewOrder(*item, winner.BidderID, winner.Amount, now)
		_, err = tx.Exec(ctx, `
			INSERT INTO orders (id, item_id, bidder_id, host_id, final_price, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, order.ID, order.ItemID, order.BidderID, order.HostID, order.FinalPrice, order.Status, order.CreatedAt)
		if err != nil {
			return err
		}

		res = domain.Resolution{
			Outcome:    domain.OutcomeSold,
			ItemID:     itemID,
			HostID:     item.HostID,
			WinnerID:   winner.BidderID,
			FinalPrice: winner.Amount,
			OrderID:    order.ID,
		}
		return nil
	})
	if err != nil {
		return domain.Resolution{}, err
	}
	return res, nil
}

func (r *Repository) RepairOrder(ctx context.Context, itemID uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		item, err := lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.Status != domain.ItemSold || item.WinningBidder == nil {
			return domain.ErrNotSold
		}

		err = tx.QueryRow(ctx, `
			SELECT id, item_id, bidder_id, host_id, final_price, payment_ref, address_ref, status, created_at
			FROM orders WHERE item_id = $1
		`, itemID).Scan(&order.ID, &order.ItemID, &order.BidderID, &order.HostID,
			&order.FinalPrice, &order.PaymentRef, &order.AddressRef, &order.Status, &order.CreatedAt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		order = domain.NewOrder(*item, *item.WinningBidder, item.CurrentPrice, time.Now().UTC())
		_, err = tx.Exec(ctx, `
			INSERT INTO orders (id, item_id, bidder_id, host_id, final_price, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, order.ID, order.ItemID, order.BidderID, order.HostID, order.FinalPrice, order.Status, order.CreatedAt)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *Repository) CompleteCheckout(ctx context.Context, orderID, bidderID uuid.UUID, paymentRef, addressRef string) (domain.Order, error) {
	var order domain.Order
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id, item_id, bidder_id, host_id, final_price, payment_ref, address_ref, status, created_at
			FROM orders WHERE id = $1 FOR UPDATE
		`, orderID).Scan(&order.ID, &order.ItemID, &order.BidderID, &order.HostID,
			&order.FinalPrice, &order.PaymentRef, &order.AddressRef, &order.Status, &order.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.BidderID != bidderID {
			return domain.ErrOrderNotFound
		}
		if order.Status != domain.OrderPendingCheckout {
			return domain.ErrAlreadyCompleted
		}

		item, err := lockItem(ctx, tx, order.ItemID)
		if err != nil {
			return err
		}
		if item.Status != domain.ItemSold {
			return domain.ErrNotSold
		}

		_, err = tx.Exec(ctx, `
			UPDATE orders SET payment_ref = $2, address_ref = $3, status = 'completed' WHERE id = $1
		`, orderID, paymentRef, addressRef)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE items SET status = 'completed' WHERE id = $1
		`, order.ItemID)
		if err != nil {
			return err
		}

		order.PaymentRef = &paymentRef
		order.AddressRef = &addressRef
		order.Status = domain.OrderCompleted
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}
