package domain

import (
	"bytes"

	"github.com/google/uuid"
)

type Outcome string

const (
	// OutcomeNoop means the item was not available or its close time has
	// not passed; a concurrent caller already resolved it, or it is too early.
	OutcomeNoop  Outcome = "noop"
	OutcomeEnded Outcome = "ended"
	OutcomeSold  Outcome = "sold"
)

// Resolution is the result of resolving one overdue item.
type Resolution struct {
	Outcome    Outcome
	ItemID     uuid.UUID
	HostID     uuid.UUID
	WinnerID   uuid.UUID
	FinalPrice float64
	OrderID    uuid.UUID
}

// HighestBid picks the winning bid deterministically: highest amount,
// ties broken by earliest placement, then lowest bid id. Returns nil when
// the log is empty.
func HighestBid(bids []Bid) *Bid {
	var best *Bid
	for i := range bids {
		b := &bids[i]
		if best == nil || beats(b, best) {
			best = b
		}
	}
	return best
}

func beats(a, b *Bid) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	if !a.PlacedAt.Equal(b.PlacedAt) {
		return a.PlacedAt.Before(b.PlacedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}
