package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetLowestPrice caches a hotel's lowest day-0 rate. The search page reads
// this hot copy; the hotels table stays the source of truth.
func (c *Client) SetLowestPrice(ctx context.Context, hotelID int64, price decimal.Decimal, ttl time.Duration) error {
	key := fmt.Sprintf("hotel:lowest:%d", hotelID)
	return c.rdb.Set(ctx, key, price.StringFixed(2), ttl).Err()
}

// GetLowestPrice retrieves a hotel's cached lowest rate
func (c *Client) GetLowestPrice(ctx context.Context, hotelID int64) (decimal.Decimal, error) {
	key := fmt.Sprintf("hotel:lowest:%d", hotelID)
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(val)
}

// AcquireRunLease takes the non-overlap lease for a batch. Returns false
// when another run of the same batch still holds it. The TTL bounds how
// long a crashed run can block the next trigger.
func (c *Client) AcquireRunLease(ctx context.Context, batch string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lease:%s", batch), "1", ttl).Result()
}

// ReleaseRunLease releases a batch run lease
func (c *Client) ReleaseRunLease(ctx context.Context, batch string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lease:%s", batch)).Err()
}
