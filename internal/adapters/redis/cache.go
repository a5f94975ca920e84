package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// CurrentPrice returns the cached price for an item, or ok=false on a miss.
// The cache is advisory: it can lag behind the ledger, so a bid above the
// cached price must still be validated by the ledger.
func (c *Cache) CurrentPrice(ctx context.Context, itemID string) (float64, bool, error) {
	val, err := c.client.Get(ctx, "price:"+itemID).Float64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

func (c *Cache) SetCurrentPrice(ctx context.Context, itemID string, price float64, ttl time.Duration) error {
	return c.client.Set(ctx, "price:"+itemID, price, ttl).Err()
}

func (c *Cache) DropPrice(ctx context.Context, itemID string) error {
	return c.client.Del(ctx, "price:"+itemID).Err()
}
