package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayStore keeps the response of a finished checkout so a retried request
// can be answered from the stored body instead of hitting the ledger again.
// Entries are scoped per bidder: the same client key from two bidders maps to
// two independent entries.
type ReplayStore struct {
	client *redis.Client
}

func NewReplayStore(client *redis.Client) *ReplayStore {
	return &ReplayStore{client: client}
}

type StoredResponse struct {
	Status int
	Body   []byte
}

func replayKey(bidderID, key string) string {
	return "checkout:replay:" + bidderID + ":" + key
}

func (s *ReplayStore) Get(ctx context.Context, bidderID, key string) (*StoredResponse, error) {
	vals, err := s.client.HGetAll(ctx, replayKey(bidderID, key)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	status, err := strconv.Atoi(vals["status"])
	if err != nil {
		return nil, err
	}
	return &StoredResponse{Status: status, Body: []byte(vals["body"])}, nil
}

func (s *ReplayStore) Set(ctx context.Context, bidderID, key string, resp StoredResponse, ttl time.Duration) error {
	full := replayKey(bidderID, key)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, full, "status", resp.Status, "body", resp.Body)
	pipe.Expire(ctx, full, ttl)
	_, err := pipe.Exec(ctx)
	return err
}
