package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "review:guard:"

// ReviewGuard implements repository.ReviewGuard with a SET NX lease per
// (product, user) pair. The lease expires after ttl if never released.
type ReviewGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReviewGuard creates a new Redis-backed review guard.
func NewReviewGuard(client *redis.Client, ttl time.Duration) *ReviewGuard {
	return &ReviewGuard{
		client: client,
		ttl:    ttl,
	}
}

func guardKey(productID, userID string) string {
	return keyPrefix + productID + ":" + userID
}

// Acquire claims the pair. It returns false if a lease is already held.
func (g *ReviewGuard) Acquire(ctx context.Context, productID, userID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, guardKey(productID, userID), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx review guard: %w", err)
	}
	return ok, nil
}

// Release drops the lease for the pair.
func (g *ReviewGuard) Release(ctx context.Context, productID, userID string) error {
	if err := g.client.Del(ctx, guardKey(productID, userID)).Err(); err != nil {
		return fmt.Errorf("redis del review guard: %w", err)
	}
	return nil
}
