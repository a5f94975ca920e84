package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/artemvolkov/auction-house/internal/bidding"
	"github.com/artemvolkov/auction-house/internal/checkout"
	"github.com/artemvolkov/auction-house/internal/domain"
	"github.com/artemvolkov/auction-house/internal/idempotency"
	"github.com/artemvolkov/auction-house/internal/ledger"
	"github.com/artemvolkov/auction-house/internal/notify"
	"github.com/artemvolkov/auction-house/internal/observability"
	"github.com/artemvolkov/auction-house/internal/sweeper"
)

const testSecret = "unit-test-secret"

type nopSink struct{}

func (nopSink) Publish(context.Context, string, interface{}) {}

// replayRecorder is an in-memory ReplayCache faithful to the store contract:
// entries live under (bidder, key).
type replayRecorder struct {
	mu     sync.Mutex
	stored map[string]idempotency.Response
}

func newReplayRecorder() *replayRecorder {
	return &replayRecorder{stored: make(map[string]idempotency.Response)}
}

func (r *replayRecorder) Get(_ context.Context, bidderID, key string) (*idempotency.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.stored[bidderID+":"+key]
	if !ok {
		return nil, nil
	}
	return &resp, nil
}

func (r *replayRecorder) Set(_ context.Context, bidderID, key string, resp idempotency.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored[bidderID+":"+key] = resp
	return nil
}

func bearer(t *testing.T, subjectID uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subjectID.String(),
		"role": role,
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + signed
}

func soldOrderID(t *testing.T, mem *ledger.Memory, winner uuid.UUID) uuid.UUID {
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
	return res.OrderID
}

func postCheckout(t *testing.T, router http.Handler, orderID uuid.UUID, auth, key string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"payment_ref": "pm_1", "address_ref": "addr_1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/"+orderID.String()+"/checkout", bytes.NewReader(body))
	req.Header.Set("Authorization", auth)
	req.Header.Set("Idempotency-Key", key)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckout_ReplayScopedToBidder(t *testing.T) {
	mem := ledger.NewMemory()
	logger := observability.NewLogger()
	var sink notify.Sink = nopSink{}

	acceptor := bidding.NewAcceptor(mem, sink, nil, logger)
	finalizer := checkout.NewFinalizer(mem, sink, nil, logger)
	sw := sweeper.New(mem, sink, nil, logger)

	replay := newReplayRecorder()
	h := NewHandlers(mem, acceptor, finalizer, sw, nil, replay, logger)
	router := SetupRouter(h, logger, testSecret, nil)

	bidderA := uuid.New()
	bidderB := uuid.New()
	orderA := soldOrderID(t, mem, bidderA)
	orderB := soldOrderID(t, mem, bidderB)

	authA := bearer(t, bidderA, domain.RoleBidder)
	authB := bearer(t, bidderB, domain.RoleBidder)
	const key = "client-retry-key-001"

	recA := postCheckout(t, router, orderA, authA, key)
	if recA.Code != http.StatusOK {
		t.Fatalf("bidder A checkout: expected 200, got %d: %s", recA.Code, recA.Body.String())
	}

	// Same client key from a different bidder must not replay A's response.
	recB := postCheckout(t, router, orderB, authB, key)
	if recB.Code != http.StatusOK {
		t.Fatalf("bidder B checkout: expected 200, got %d: %s", recB.Code, recB.Body.String())
	}
	if recA.Body.String() == recB.Body.String() {
		t.Fatal("bidder B received bidder A's cached response")
	}

	var bodyB struct {
		OrderID uuid.UUID `json:"order_id"`
	}
	if err := json.Unmarshal(recB.Body.Bytes(), &bodyB); err != nil {
		t.Fatal(err)
	}
	if bodyB.OrderID != orderB {
		t.Errorf("expected order %v in B's response, got %v", orderB, bodyB.OrderID)
	}

	// A retry by the same bidder with the same key is served from the cache.
	recRetry := postCheckout(t, router, orderA, authA, key)
	if recRetry.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d: %s", recRetry.Code, recRetry.Body.String())
	}
	if recRetry.Body.String() != recA.Body.String() {
		t.Error("retry with the same key must return the stored response")
	}
}
