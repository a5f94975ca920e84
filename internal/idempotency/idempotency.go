package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/artemvolkov/auction-house/internal/adapters/redis"
)

// Idempotency replays the stored response for a repeated checkout POST so a
// client retry after a timeout cannot double-submit. Entries are keyed by
// (bidder, client key): one bidder can never replay another bidder's response.
type Idempotency struct {
	store *redisadapter.ReplayStore
	ttl   time.Duration
}

func NewIdempotency(store *redisadapter.ReplayStore, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

type Response struct {
	Status int
	Result []byte
}

func (i *Idempotency) Get(ctx context.Context, bidderID, key string) (*Response, error) {
	stored, err := i.store.Get(ctx, bidderID, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Result: stored.Body}, nil
}

func (i *Idempotency) Set(ctx context.Context, bidderID, key string, resp Response) error {
	return i.store.Set(ctx, bidderID, key, redisadapter.StoredResponse{Status: resp.Status, Body: resp.Result}, i.ttl)
}
