package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/mark_scanned.lua
var markScannedScript string

type Client struct {
	rdb          *redis.Client
	scanDebounce *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
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

	return &Client{
		rdb:          rdb,
		scanDebounce: redis.NewScript(markScannedScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// DebounceScan atomically records that a code was just presented.
// Returns true if this is the first presentation inside the window,
// false for a rapid repeat (a gate device double press). This is a UX
// debounce only; the at-most-once redemption guarantee lives in the
// scan_logs unique constraint.
func (c *Client) DebounceScan(ctx context.Context, code string, window time.Duration) (bool, error) {
	key := fmt.Sprintf("scan:debounce:%s", code)

	result, err := c.scanDebounce.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("scan debounce script failed: %w", err)
	}

	first, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return first == 1, nil
}

// CacheOrderSummary stores a rendered order summary with TTL
func (c *Client) CacheOrderSummary(ctx context.Context, orderID string, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, orderKey(orderID), payload, ttl).Err()
}

// GetOrderSummary retrieves a cached order summary, nil on miss
func (c *Client) GetOrderSummary(ctx context.Context, orderID string) ([]byte, error) {
	payload, err := c.rdb.Get(ctx, orderKey(orderID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// InvalidateOrder drops the cached summary after a state change
func (c *Client) InvalidateOrder(ctx context.Context, orderID string) error {
	return c.rdb.Del(ctx, orderKey(orderID)).Err()
}

func orderKey(orderID string) string {
	return fmt.Sprintf("order:summary:%s", orderID)
}
