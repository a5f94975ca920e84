package domain

import (
	"time"

	"github.com/google/uuid"
)

type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemEnded     ItemStatus = "ended"
	ItemSold      ItemStatus = "sold"
	ItemCompleted ItemStatus = "completed"
)

type OrderStatus string

const (
	OrderPendingCheckout OrderStatus = "pending_checkout"
	OrderCompleted       OrderStatus = "completed"
)

type Item struct {
	ID             uuid.UUID
	HostID         uuid.UUID
	Name           string
	Description    string
	Category       string
	InitialPrice   float64
	CurrentPrice   float64
	CloseTime      time.Time
	Status         ItemStatus
	WinningBidder  *uuid.UUID
	CreatedAt      time.Time
}

type Bid struct {
	ID       uuid.UUID
	ItemID   uuid.UUID
	BidderID uuid.UUID
	Amount   float64
	PlacedAt time.Time
}

type Order struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	BidderID   uuid.UUID
	HostID     uuid.UUID
	FinalPrice float64
	PaymentRef *string
	AddressRef *string
	Status     OrderStatus
	CreatedAt  time.Time
}

// Open reports whether the item still accepts bids at the given instant.
func (i *Item) Open(now time.Time) bool {
	return i.Status == ItemAvailable && now.Before(i.CloseTime)
}
