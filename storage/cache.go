package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kitchen-board/domain"
)

type backend interface {
	ListActiveOrders(ctx context.Context, storeID string) ([]domain.Order, error)
	ListRecentlyCompletedOrders(ctx context.Context, storeID string, window time.Duration) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.Status) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID, reason string) (domain.Order, error)
}

// Cache wraps a Storage instance with Redis-backed caching for the two
// list reads. The polling cadence of every console in a store hits the
// same keys, so even a short TTL takes most of the load off the table.
type Cache struct {
	base    backend
	redis   *redis.Client
	ttl     time.Duration
	storeID string
}

// NewCache creates a caching wrapper using the provided Redis client and
// TTL. Writes pass through and evict the store's cache entries.
func NewCache(base backend, client *redis.Client, ttl time.Duration, storeID string) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl, storeID: storeID}
}

func (c *Cache) ListActiveOrders(ctx context.Context, storeID string) ([]domain.Order, error) {
	if orders, ok := c.load(ctx, activeCacheKey(storeID)); ok {
		return orders, nil
	}
	orders, err := c.base.ListActiveOrders(ctx, storeID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, activeCacheKey(storeID), orders)
	return orders, nil
}

func (c *Cache) ListRecentlyCompletedOrders(ctx context.Context, storeID string, window time.Duration) ([]domain.Order, error) {
	if orders, ok := c.load(ctx, doneCacheKey(storeID)); ok {
		return orders, nil
	}
	orders, err := c.base.ListRecentlyCompletedOrders(ctx, storeID, window)
	if err != nil {
		return nil, err
	}
	c.store(ctx, doneCacheKey(storeID), orders)
	return orders, nil
}

func (c *Cache) UpdateOrderStatus(ctx context.Context, orderID string, status domain.Status) (domain.Order, error) {
	order, err := c.base.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return domain.Order{}, err
	}
	c.evict(ctx)
	return order, nil
}

func (c *Cache) CancelOrder(ctx context.Context, orderID, reason string) (domain.Order, error) {
	order, err := c.base.CancelOrder(ctx, orderID, reason)
	if err != nil {
		return domain.Order{}, err
	}
	c.evict(ctx)
	return order, nil
}

func (c *Cache) load(ctx context.Context, key string) ([]domain.Order, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var orders []domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return orders, true
}

func (c *Cache) store(ctx context.Context, key string, orders []domain.Order) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, activeCacheKey(c.storeID), doneCacheKey(c.storeID)).Result()
}

func activeCacheKey(storeID string) string {
	return "orders:active:" + storeID
}

func doneCacheKey(storeID string) string {
	return "orders:done:" + storeID
}
