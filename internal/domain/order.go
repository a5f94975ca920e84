package domain

import (
	"time"

	"github.com/google/uuid"
)

func NewOrder(item Item, winnerID uuid.UUID, finalPrice float64, createdAt time.Time) Order {
	return Order{
		ID:         uuid.New(),
		ItemID:     item.ID,
		BidderID:   winnerID,
		HostID:     item.HostID,
		FinalPrice: finalPrice,
		Status:     OrderPendingCheckout,
		CreatedAt:  createdAt,
	}
}
