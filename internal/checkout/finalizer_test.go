package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/artemvolkov/auction-house/internal/domain"
	"github.com/artemvolkov/auction-house/internal/ledger"
	"github.com/artemvolkov/auction-house/internal/notify"
	"github.com/artemvolkov/auction-house/internal/observability"
)

type sinkRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *sinkRecorder) Publish(_ context.Context, event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func soldOrder(t *testing.T, mem *ledger.Memory, winner uuid.UUID) domain.Resolution {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	item := domain.NewItem(uuid.New(), "vase", "", "antiques", 50, now)
	if err := mem.CreateItem(ctx, item); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.AcceptBid(ctx, item.ID, winner, 75, now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	res, err := mem.ResolveExpiry(ctx, item.ID, now)
	if err != nil || res.Outcome != domain.OutcomeSold {
		t.Fatalf("setup resolve failed: %v %v", res.Outcome, err)
	}
	return res
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	sink := &sinkRecorder{}
	winner := uuid.New()
	res := soldOrder(t, mem, winner)

	f := NewFinalizer(mem, sink, nil, observability.NewLogger())
	ident := domain.Identity{SubjectID: winner, Role: domain.RoleBidder}

	order, err := f.Complete(ctx, ident, res.OrderID, "pm_1", "addr_1")
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != domain.OrderCompleted {
		t.Errorf("expected completed order, got %v", order.Status)
	}

	item, _ := mem.GetItem(ctx, res.ItemID)
	if item.Status != domain.ItemCompleted {
		t.Errorf("item must complete together with the order, got %v", item.Status)
	}
	if len(sink.events) != 1 || sink.events[0] != notify.EventOrderDone {
		t.Errorf("expected one order.completed event, got %v", sink.events)
	}
}

func TestComplete_Rejections(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	sink := &sinkRecorder{}
	winner := uuid.New()
	res := soldOrder(t, mem, winner)

	f := NewFinalizer(mem, sink, nil, observability.NewLogger())
	ident := domain.Identity{SubjectID: winner, Role: domain.RoleBidder}

	cases := []struct {
		name       string
		ident      domain.Identity
		orderID    uuid.UUID
		payment    string
		address    string
		want       error
	}{
		{"host role", domain.Identity{SubjectID: winner, Role: domain.RoleHost}, res.OrderID, "pm", "addr", domain.ErrForbidden},
		{"missing payment", ident, res.OrderID, "", "addr", domain.ErrInvalidInput},
		{"missing address", ident, res.OrderID, "pm", "", domain.ErrInvalidInput},
		{"unknown order", ident, uuid.New(), "pm", "addr", domain.ErrOrderNotFound},
		{"foreign order", domain.Identity{SubjectID: uuid.New(), Role: domain.RoleBidder}, res.OrderID, "pm", "addr", domain.ErrOrderNotFound},
	}
	for _, tc := range cases {
		if _, err := f.Complete(ctx, tc.ident, tc.orderID, tc.payment, tc.address); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	// Order must still be pending after all the failed attempts.
	order, _ := mem.GetOrder(ctx, res.OrderID)
	if order.Status != domain.OrderPendingCheckout {
		t.Fatalf("failed checkouts must not change the order, got %v", order.Status)
	}
	if len(sink.events) != 0 {
		t.Errorf("failed checkouts must not publish events, got %v", sink.events)
	}
}

func TestComplete_SecondAttemptRejected(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	winner := uuid.New()
	res := soldOrder(t, mem, winner)

	f := NewFinalizer(mem, &sinkRecorder{}, nil, observability.NewLogger())
	ident := domain.Identity{SubjectID: winner, Role: domain.RoleBidder}

	if _, err := f.Complete(ctx, ident, res.OrderID, "pm_1", "addr_1"); err != nil {
		t.Fatal(err)
	}
	_, err := f.Complete(ctx, ident, res.OrderID, "pm_2", "addr_2")
	if !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	order, _ := mem.GetOrder(ctx, res.OrderID)
	if order.PaymentRef == nil || *order.PaymentRef != "pm_1" {
		t.Errorf("second checkout must leave fields unchanged: %+v", order)
	}
}
