package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned when a key is not cached
var ErrCacheMiss = errors.New("cache miss")

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

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func productKey(productID string) string {
	return fmt.Sprintf("catalog:product:%s", productID)
}

func relatedKey(productID string) string {
	return fmt.Sprintf("catalog:related:%s", productID)
}

func viewStateKey(sessionID string) string {
	return fmt.Sprintf("session:view:%s", sessionID)
}

// GetProduct returns the cached product document
func (c *Client) GetProduct(ctx context.Context, productID string) ([]byte, error) {
	return c.get(ctx, productKey(productID))
}

// SetProduct caches a product document
func (c *Client) SetProduct(ctx context.Context, productID string, doc []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, productKey(productID), doc, ttl).Err()
}

// GetRelated returns the cached related products document
func (c *Client) GetRelated(ctx context.Context, productID string) ([]byte, error) {
	return c.get(ctx, relatedKey(productID))
}

// SetRelated caches a related products document
func (c *Client) SetRelated(ctx context.Context, productID string, doc []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, relatedKey(productID), doc, ttl).Err()
}

// EvictProduct drops every cached document of a product
func (c *Client) EvictProduct(ctx context.Context, productID string) error {
	return c.rdb.Del(ctx, productKey(productID), relatedKey(productID)).Err()
}

// SaveViewState stores the latest published view state of a session
func (c *Client) SaveViewState(ctx context.Context, sessionID string, doc []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, viewStateKey(sessionID), doc, ttl).Err()
}

// GetViewState returns the latest published view state of a session
func (c *Client) GetViewState(ctx context.Context, sessionID string) ([]byte, error) {
	return c.get(ctx, viewStateKey(sessionID))
}

// DeleteViewState removes the view state of a session
func (c *Client) DeleteViewState(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, viewStateKey(sessionID)).Err()
}

func (c *Client) get(ctx context.Context, key string) ([]byte, error) {
	doc, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}
