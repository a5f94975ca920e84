package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisadapter "github.com/artemvolkov/auction-house/internal/adapters/redis"
	"github.com/artemvolkov/auction-house/internal/bidding"
	"github.com/artemvolkov/auction-house/internal/checkout"
	"github.com/artemvolkov/auction-house/internal/domain"
	"github.com/artemvolkov/auction-house/internal/idempotency"
	"github.com/artemvolkov/auction-house/internal/ledger"
	"github.com/artemvolkov/auction-house/internal/observability"
	"github.com/artemvolkov/auction-house/internal/sweeper"
)

const priceCacheTTL = time.Hour

// ReplayCache stores finished checkout responses per (bidder, client key).
type ReplayCache interface {
	Get(ctx context.Context, bidderID, key string) (*idempotency.Response, error)
	Set(ctx context.Context, bidderID, key string, resp idempotency.Response) error
}

type Handlers struct {
	ledger    ledger.Ledger
	acceptor  *bidding.Acceptor
	finalizer *checkout.Finalizer
	sweeper   *sweeper.Sweeper
	cache     *redisadapter.Cache
	idemp     ReplayCache
	logger    observability.Logger
}

func NewHandlers(l ledger.Ledger, acceptor *bidding.Acceptor, finalizer *checkout.Finalizer, sw *sweeper.Sweeper, cache *redisadapter.Cache, idemp ReplayCache, logger observability.Logger) *Handlers {
	return &Handlers{
		ledger:    l,
		acceptor:  acceptor,
		finalizer: finalizer,
		sweeper:   sw,
		cache:     cache,
		idemp:     idemp,
		logger:    logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) []byte {
	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrAuctionClosed),
		errors.Is(err, domain.ErrItemUnavailable),
		errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrNotSold):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if ident.Role != domain.RoleHost {
		http.Error(w, "only hosts can list items", http.StatusForbidden)
		return
	}

	var req struct {
		Name         string    `json:"name"`
		Description  string    `json:"description"`
		Category     string    `json:"category"`
		InitialPrice float64   `json:"initial_price"`
		CloseTime    time.Time `json:"close_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.InitialPrice <= 0 || !req.CloseTime.After(time.Now()) {
		http.Error(w, "name, positive initial_price and a future close_time are required", http.StatusBadRequest)
		return
	}

	item := domain.NewItem(ident.SubjectID, req.Name, req.Description, req.Category, req.InitialPrice, req.CloseTime.UTC())
	if err := h.ledger.CreateItem(r.Context(), item); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"item_id": item.ID})
}

func (h *Handlers) PlaceBid(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The cached price only ever lags the ledger, so a bid at or below it is
	// already lost and can be rejected without touching the store.
	if h.cache != nil {
		if cached, hit, err := h.cache.CurrentPrice(r.Context(), itemID.String()); err == nil && hit && req.Amount <= cached {
			writeDomainError(w, domain.ErrBidTooLow)
			return
		}
	}

	bid, err := h.acceptor.PlaceBid(r.Context(), ident, itemID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetCurrentPrice(r.Context(), itemID.String(), bid.Amount, priceCacheTTL); err != nil {
			h.logger.WithError(err).Warn("failed to refresh price cache")
		}
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"bid_id":    bid.ID,
		"new_price": bid.Amount,
	})
}

func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	item, err := h.ledger.GetItem(r.Context(), itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"item_id":        item.ID,
		"host_id":        item.HostID,
		"name":           item.Name,
		"description":    item.Description,
		"category":       item.Category,
		"initial_price":  item.InitialPrice,
		"current_price":  item.CurrentPrice,
		"close_time":     item.CloseTime.Format(time.RFC3339),
		"status":         item.Status,
		"open":           item.Open(time.Now().UTC()),
		"winning_bidder": item.WinningBidder,
	})
}

func (h *Handlers) ListBids(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	bids, err := h.ledger.ListBids(r.Context(), itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Newest first.
	out := make([]map[string]interface{}, 0, len(bids))
	for i := len(bids) - 1; i >= 0; i-- {
		b := bids[i]
		out = append(out, map[string]interface{}{
			"bid_id":    b.ID,
			"bidder_id": b.BidderID,
			"amount":    b.Amount,
			"placed_at": b.PlacedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	order, err := h.ledger.GetOrder(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if order.BidderID != ident.SubjectID && order.HostID != ident.SubjectID {
		writeDomainError(w, domain.ErrOrderNotFound)
		return
	}

	writeJSON(w, http.StatusOK, orderBody(*order))
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if h.idemp != nil {
		existing, err := h.idemp.Get(r.Context(), ident.SubjectID.String(), key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if existing != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(existing.Status)
			w.Write(existing.Result)
			return
		}
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var req struct {
		PaymentRef string `json:"payment_ref"`
		AddressRef string `json:"address_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.finalizer.Complete(r.Context(), ident, orderID, req.PaymentRef, req.AddressRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data := writeJSON(w, http.StatusOK, orderBody(order))
	if h.idemp != nil {
		h.idemp.Set(r.Context(), ident.SubjectID.String(), key, idempotency.Response{Status: http.StatusOK, Result: data})
	}
	if h.cache != nil {
		// The price cannot change anymore.
		h.cache.DropPrice(r.Context(), order.ItemID.String())
	}
}

// Sweep runs one resolution pass immediately, without waiting for the timer.
func (h *Handlers) Sweep(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.sweeper.Sweep(r.Context(), time.Now().UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resolved_count": resolved})
}

func orderBody(order domain.Order) map[string]interface{} {
	return map[string]interface{}{
		"order_id":    order.ID,
		"item_id":     order.ItemID,
		"bidder_id":   order.BidderID,
		"host_id":     order.HostID,
		"final_price": order.FinalPrice,
		"payment_ref": order.PaymentRef,
		"address_ref": order.AddressRef,
		"status":      order.Status,
		"created_at":  order.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
