// Package notify is the outbound event channel for real-time consumers.
// Delivery is fire and forget: a failed publish is counted and logged but
// never rolls back the state transition that produced it.
package notify

import (
	"context"

	"github.com/google/uuid"
)

const (
	EventBidPlaced    = "bid.placed"
	EventAuctionEnded = "auction.ended"
	EventOrderDone    = "order.completed"
)

type Sink interface {
	Publish(ctx context.Context, event string, payload interface{})
}

type BidPlaced struct {
	ItemID   uuid.UUID `json:"item_id"`
	BidID    uuid.UUID `json:"bid_id"`
	BidderID uuid.UUID `json:"bidder_id"`
	Amount   float64   `json:"amount"`
}

type AuctionEnded struct {
	ItemID     uuid.UUID  `json:"item_id"`
	WinnerID   *uuid.UUID `json:"winner_id"`
	FinalPrice *float64   `json:"final_price"`
	OrderID    *uuid.UUID `json:"order_id"`
}

type OrderCompleted struct {
	OrderID uuid.UUID `json:"order_id"`
	ItemID  uuid.UUID `json:"item_id"`
}
