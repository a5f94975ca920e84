package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHighestBid_Empty(t *testing.T) {
	if got := HighestBid(nil); got != nil {
		t.Fatalf("expected nil winner for empty log, got %v", got)
	}
}

func TestHighestBid_PicksHighestAmount(t *testing.T) {
	itemID := uuid.New()
	t0 := time.Now().UTC()
	bids := []Bid{
		NewBid(itemID, uuid.New(), 60, t0),
		NewBid(itemID, uuid.New(), 75, t0.Add(time.Second)),
		NewBid(itemID, uuid.New(), 70, t0.Add(2*time.Second)),
	}

	winner := HighestBid(bids)
	if winner == nil {
		t.Fatal("expected a winner")
	}
	if winner.Amount != 75 {
		t.Errorf("expected winning amount 75, got %v", winner.Amount)
	}
}

func TestHighestBid_TieBrokenByEarliestThenID(t *testing.T) {
	itemID := uuid.New()
	t0 := time.Now().UTC()

	early := NewBid(itemID, uuid.New(), 100, t0)
	late := NewBid(itemID, uuid.New(), 100, t0.Add(time.Second))

	winner := HighestBid([]Bid{late, early})
	if winner.ID != early.ID {
		t.Errorf("expected earliest bid to win the tie, got %v", winner.ID)
	}

	// Same instant: lowest id wins regardless of slice order.
	a := NewBid(itemID, uuid.New(), 100, t0)
	b := NewBid(itemID, uuid.New(), 100, t0)
	want := a
	if b.ID.String() < a.ID.String() {
		want = b
	}
	for _, bids := range [][]Bid{{a, b}, {b, a}} {
		if got := HighestBid(bids); got.ID != want.ID {
			t.Errorf("expected deterministic winner %v, got %v", want.ID, got.ID)
		}
	}
}
