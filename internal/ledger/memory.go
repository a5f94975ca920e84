package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artemvolkov/auction-house/internal/domain"
)

// Memory is a Ledger keeping all state in process. Serialization is a plain
// per-item mutex; the maps themselves are guarded separately so contention on
// one item never blocks another.
type Memory struct {
	mu      sync.RWMutex
	items   map[uuid.UUID]*itemState
	orderIx map[uuid.UUID]uuid.UUID // order id -> item id
}

type itemState struct {
	mu    sync.Mutex
	item  domain.Item
	bids  []domain.Bid
	order *domain.Order
}

func NewMemory() *Memory {
	return &Memory{
		items:   make(map[uuid.UUID]*itemState),
		orderIx: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *Memory) CreateItem(ctx context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = &itemState{item: item}
	return nil
}

func (m *Memory) state(itemID uuid.UUID) *itemState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[itemID]
}

func (m *Memory) AcceptBid(ctx context.Context, itemID, bidderID uuid.UUID, amount float64, now time.Time) (domain.Bid, error) {
	st := m.state(itemID)
	if st == nil {
		return domain.Bid{}, domain.ErrItemNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if !now.Before(st.item.CloseTime) {
		return domain.Bid{}, domain.ErrAuctionClosed
	}
	if st.item.Status != domain.ItemAvailable {
		return domain.Bid{}, domain.ErrItemUnavailable
	}
	if amount <= st.item.CurrentPrice {
		return domain.Bid{}, domain.ErrBidTooLow
	}

	bid := domain.NewBid(itemID, bidderID, amount, now)
	st.bids = append(st.bids, bid)
	st.item.CurrentPrice = amount
	return bid, nil
}

func (m *Memory) ResolveExpiry(ctx context.Context, itemID uuid.UUID, now time.Time) (domain.Resolution, error) {
	st := m.state(itemID)
	if st == nil {
		return domain.Resolution{}, domain.ErrItemNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.item.Status != domain.ItemAvailable || now.Before(st.item.CloseTime) {
		return domain.Resolution{Outcome: domain.OutcomeNoop, ItemID: itemID}, nil
	}

	winner := domain.HighestBid(st.bids)
	if winner == nil {
		st.item.Status = domain.ItemEnded
		return domain.Resolution{Outcome: domain.OutcomeEnded, ItemID: itemID, HostID: st.item.HostID}, nil
	}

	st.item.Status = domain.ItemSold
	st.item.CurrentPrice = winner.Amount
	w := winner.BidderID
	st.item.WinningBidder = &w

	order := domain.NewOrder(st.item, winner.BidderID, winner.Amount, now)
	st.order = &order

	m.mu.Lock()
	m.orderIx[order.ID] = itemID
	m.mu.Unlock()

	return domain.Resolution{
		Outcome:    domain.OutcomeSold,
		ItemID:     itemID,
		HostID:     st.item.HostID,
		WinnerID:   winner.BidderID,
		FinalPrice: winner.Amount,
		OrderID:    order.ID,
	}, nil
}

func (m *Memory) CompleteCheckout(ctx context.Context, orderID, bidderID uuid.UUID, paymentRef, addressRef string) (domain.Order, error) {
	m.mu.RLock()
	itemID, ok := m.orderIx[orderID]
	var st *itemState
	if ok {
		st = m.items[itemID]
	}
	m.mu.RUnlock()
	if st == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.order == nil || st.order.BidderID != bidderID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if st.order.Status != domain.OrderPendingCheckout {
		return domain.Order{}, domain.ErrAlreadyCompleted
	}
	if st.item.Status != domain.ItemSold {
		return domain.Order{}, domain.ErrNotSold
	}

	st.order.PaymentRef = &paymentRef
	st.order.AddressRef = &addressRef
	st.order.Status = domain.OrderCompleted
	st.item.Status = domain.ItemCompleted
	return *st.order, nil
}

func (m *Memory) RepairOrder(ctx context.Context, itemID uuid.UUID) (domain.Order, error) {
	st := m.state(itemID)
	if st == nil {
		return domain.Order{}, domain.ErrItemNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.item.Status != domain.ItemSold {
		return domain.Order{}, domain.ErrNotSold
	}
	if st.order != nil {
		return *st.order, nil
	}
	if st.item.WinningBidder == nil {
		return domain.Order{}, domain.ErrNotSold
	}

	order := domain.NewOrder(st.item, *st.item.WinningBidder, st.item.CurrentPrice, time.Now().UTC())
	st.order = &order

	m.mu.Lock()
	m.orderIx[order.ID] = itemID
	m.mu.Unlock()
	return order, nil
}

func (m *Memory) DueItems(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	m.mu.RLock()
	states := make([]*itemState, 0, len(m.items))
	for _, st := range m.items {
		states = append(states, st)
	}
	m.mu.RUnlock()

	var due []uuid.UUID
	for _, st := range states {
		st.mu.Lock()
		if st.item.Status == domain.ItemAvailable && !now.Before(st.item.CloseTime) {
			due = append(due, st.item.ID)
		}
		st.mu.Unlock()
	}
	return due, nil
}

func (m *Memory) SoldWithoutOrder(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	states := make([]*itemState, 0, len(m.items))
	for _, st := range m.items {
		states = append(states, st)
	}
	m.mu.RUnlock()

	var orphaned []uuid.UUID
	for _, st := range states {
		st.mu.Lock()
		if st.item.Status == domain.ItemSold && st.order == nil {
			orphaned = append(orphaned, st.item.ID)
		}
		st.mu.Unlock()
	}
	return orphaned, nil
}

func (m *Memory) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	st := m.state(itemID)
	if st == nil {
		return nil, domain.ErrItemNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	item := st.item
	return &item, nil
}

func (m *Memory) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	m.mu.RLock()
	itemID, ok := m.orderIx[orderID]
	var st *itemState
	if ok {
		st = m.items[itemID]
	}
	m.mu.RUnlock()
	if st == nil {
		return nil, domain.ErrOrderNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.order == nil {
		return nil, domain.ErrOrderNotFound
	}
	order := *st.order
	return &order, nil
}

func (m *Memory) ListBids(ctx context.Context, itemID uuid.UUID) ([]domain.Bid, error) {
	st := m.state(itemID)
	if st == nil {
		return nil, domain.ErrItemNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	bids := make([]domain.Bid, len(st.bids))
	copy(bids, st.bids)
	return bids, nil
}
