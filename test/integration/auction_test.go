package integration_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/artemvolkov/auction-house/internal/adapters/crdb"
	"github.com/artemvolkov/auction-house/internal/bidding"
	"github.com/artemvolkov/auction-house/internal/checkout"
	"github.com/artemvolkov/auction-house/internal/domain"
	"github.com/artemvolkov/auction-house/internal/notify"
	"github.com/artemvolkov/auction-house/internal/observability"
	"github.com/artemvolkov/auction-house/internal/sweeper"
)

const schema = `
	CREATE DATABASE IF NOT EXISTS auction;
	CREATE TABLE IF NOT EXISTS auction.items (
		id UUID PRIMARY KEY,
		host_id UUID NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT,
		initial_price NUMERIC NOT NULL,
		current_price NUMERIC NOT NULL,
		close_time TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		winning_bidder UUID,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS auction.bids (
		id UUID PRIMARY KEY,
		item_id UUID NOT NULL,
		bidder_id UUID NOT NULL,
		amount NUMERIC NOT NULL,
		placed_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS auction.orders (
		id UUID PRIMARY KEY,
		item_id UUID NOT NULL UNIQUE,
		bidder_id UUID NOT NULL,
		host_id UUID NOT NULL,
		final_price NUMERIC NOT NULL,
		payment_ref TEXT,
		address_ref TEXT,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
`

type sinkRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *sinkRecorder) Publish(_ context.Context, event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *sinkRecorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func TestIntegration_BidSweepCheckout(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatal(err)
	}
	dsn := fmt.Sprintf("postgres://root@%s:%s/auction?sslmode=disable", host, port.Port())

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}

	repo := crdb.NewRepository(pool)
	sink := &sinkRecorder{}
	logger := observability.NewLogger()

	closeTime := time.Now().UTC().Add(time.Hour)
	now := closeTime.Add(-10 * time.Second)
	clock := func() time.Time { return now }

	acceptor := bidding.NewAcceptor(repo, sink, nil, logger).WithClock(clock)
	finalizer := checkout.NewFinalizer(repo, sink, nil, logger)
	sw := sweeper.New(repo, sink, nil, logger).WithClock(clock)

	hostID := uuid.New()
	bidderA := uuid.New()
	bidderB := uuid.New()
	identA := domain.Identity{SubjectID: bidderA, Role: domain.RoleBidder}
	identB := domain.Identity{SubjectID: bidderB, Role: domain.RoleBidder}

	item := domain.NewItem(hostID, "painting", "oil on canvas", "art", 50, closeTime)
	if err := repo.CreateItem(ctx, item); err != nil {
		t.Fatal(err)
	}

	// T-10: 60 clears the initial 50.
	if _, err := acceptor.PlaceBid(ctx, identA, item.ID, 60); err != nil {
		t.Fatalf("bid 60: %v", err)
	}

	// T-9: 55 is under the running price.
	now = closeTime.Add(-9 * time.Second)
	if _, err := acceptor.PlaceBid(ctx, identB, item.ID, 55); !errors.Is(err, domain.ErrBidTooLow) {
		t.Fatalf("bid 55: expected ErrBidTooLow, got %v", err)
	}

	// T-5: 75 takes the lead.
	now = closeTime.Add(-5 * time.Second)
	if _, err := acceptor.PlaceBid(ctx, identB, item.ID, 75); err != nil {
		t.Fatalf("bid 75: %v", err)
	}

	got, err := repo.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentPrice != 75 {
		t.Fatalf("expected price 75 before close, got %v", got.CurrentPrice)
	}

	// T+1: the sweep resolves the sale.
	now = closeTime.Add(time.Second)
	resolved, err := sw.Sweep(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != 1 {
		t.Fatalf("expected 1 resolved item, got %d", resolved)
	}

	got, _ = repo.GetItem(ctx, item.ID)
	if got.Status != domain.ItemSold || got.WinningBidder == nil || *got.WinningBidder != bidderB {
		t.Fatalf("expected item sold to the 75 bidder, got %+v", got)
	}

	// A second sweep changes nothing.
	resolved, err = sw.Sweep(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != 0 {
		t.Fatalf("expected idempotent second sweep, resolved %d", resolved)
	}

	// Late bid is rejected now that the auction is closed.
	if _, err := acceptor.PlaceBid(ctx, identA, item.ID, 100); !errors.Is(err, domain.ErrAuctionClosed) {
		t.Fatalf("expected ErrAuctionClosed after close, got %v", err)
	}

	// Find the order via the item.
	orders, err := repo.SoldWithoutOrder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 0 {
		t.Fatalf("sold item missing its order: %v", orders)
	}

	var orderID uuid.UUID
	err = pool.QueryRow(ctx, `SELECT id FROM orders WHERE item_id = $1`, item.ID).Scan(&orderID)
	if err != nil {
		t.Fatal(err)
	}

	order, err := repo.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != domain.OrderPendingCheckout || order.FinalPrice != 75 || order.BidderID != bidderB {
		t.Fatalf("unexpected pending order: %+v", order)
	}

	// Checkout completes order and item together.
	completed, err := finalizer.Complete(ctx, identB, orderID, "pm_42", "addr_42")
	if err != nil {
		t.Fatal(err)
	}
	if completed.Status != domain.OrderCompleted {
		t.Fatalf("expected completed order, got %v", completed.Status)
	}
	got, _ = repo.GetItem(ctx, item.ID)
	if got.Status != domain.ItemCompleted {
		t.Fatalf("expected completed item, got %v", got.Status)
	}

	// And only once.
	if _, err := finalizer.Complete(ctx, identB, orderID, "pm_43", "addr_43"); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	if n := sink.count(notify.EventBidPlaced); n != 2 {
		t.Errorf("expected 2 %s events, got %d", notify.EventBidPlaced, n)
	}
	if n := sink.count(notify.EventAuctionEnded); n != 1 {
		t.Errorf("expected 1 %s event, got %d", notify.EventAuctionEnded, n)
	}
	if n := sink.count(notify.EventOrderDone); n != 1 {
		t.Errorf("expected 1 %s event, got %d", notify.EventOrderDone, n)
	}
}
