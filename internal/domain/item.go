package domain

import (
	"time"

	"github.com/google/uuid"
)

func NewItem(hostID uuid.UUID, name, description, category string, initialPrice float64, closeTime time.Time) Item {
	return Item{
		ID:           uuid.New(),
		HostID:       hostID,
		Name:         name,
		Description:  description,
		Category:     category,
		InitialPrice: initialPrice,
		CurrentPrice: initialPrice,
		CloseTime:    closeTime,
		Status:       ItemAvailable,
		CreatedAt:    time.Now().UTC(),
	}
}

func NewBid(itemID, bidderID uuid.UUID, amount float64, placedAt time.Time) Bid {
	return Bid{
		ID:       uuid.New(),
		ItemID:   itemID,
		BidderID: bidderID,
		Amount:   amount,
		PlacedAt: placedAt,
	}
}
