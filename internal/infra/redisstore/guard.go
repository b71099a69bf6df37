package redisstore

import (
	"context"
	"fmt"
	"time"

	"shop-console/internal/domain"

	"github.com/redis/go-redis/v9"
)

// NotifyGuard hands out one idempotency marker per (order, status) so a
// repeated transition does not message the customer twice within the TTL.
type NotifyGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewNotifyGuard(client *redis.Client, ttl time.Duration) *NotifyGuard {
	return &NotifyGuard{client: client, ttl: ttl}
}

func (g *NotifyGuard) MarkerKey(orderID uint64, status domain.OrderStatus) string {
	return fmt.Sprintf("notify:%d:%s", orderID, status)
}

// Claim returns true when the caller holds the marker and should notify.
func (g *NotifyGuard) Claim(ctx context.Context, orderID uint64, status domain.OrderStatus) (bool, error) {
	return g.client.SetNX(ctx, g.MarkerKey(orderID, status), "1", g.ttl).Result()
}

// Release drops the marker so a failed delivery can be attempted again.
func (g *NotifyGuard) Release(ctx context.Context, orderID uint64, status domain.OrderStatus) error {
	return g.client.Del(ctx, g.MarkerKey(orderID, status)).Err()
}
