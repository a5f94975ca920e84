package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artemvolkov/auction-house/internal/domain"
	"github.com/artemvolkov/auction-house/internal/observability"
)

const (
	SerializationFailureCode = "40001"
)

// Repository is the pgx-backed ledger. Per-item serialization comes from a
// SERIALIZABLE transaction plus SELECT ... FOR UPDATE on the item row.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) CreateItem(ctx context.Context, item domain.Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO items (id, host_id, name, description, category, initial_price, current_price, close_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.HostID, item.Name, item.Description, item.Category,
		item.InitialPrice, item.CurrentPrice, item.CloseTime, item.Status, item.CreatedAt)
	return err
}

func (r *Repository) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	var item domain.Item
	err := r.pool.QueryRow(ctx, `
		SELECT id, host_id, name, description, category, initial_price, current_price, close_time, status, winning_bidder, created_at
		FROM items WHERE id = $1
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

func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, item_id, bidder_id, host_id, final_price, payment_ref, address_ref, status, created_at
		FROM orders WHERE id = $1
	`, orderID).Scan(&order.ID, &order.ItemID, &order.BidderID, &order.HostID,
		&order.FinalPrice, &order.PaymentRef, &order.AddressRef, &order.Status, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) ListBids(ctx context.Context, itemID uuid.UUID) ([]domain.Bid, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, bidder_id, amount, placed_at
		FROM bids WHERE item_id = $1 ORDER BY placed_at ASC, id ASC
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.ID, &b.ItemID, &b.BidderID, &b.Amount, &b.PlacedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (r *Repository) DueItems(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM items WHERE status = 'available' AND close_time <= $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *Repository) SoldWithoutOrder(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id FROM items i
		LEFT JOIN orders o ON o.item_id = i.id
		WHERE i.status = 'sold' AND o.id IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
