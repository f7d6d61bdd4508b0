// internal/infrastructure/database/redis/sync_guard.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SyncGuard records which session/user pairs already merged a guest cart
type SyncGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSyncGuard creates a guard whose marks expire after ttl
func NewSyncGuard(client *redis.Client, ttl time.Duration) *SyncGuard {
	return &SyncGuard{client: client, ttl: ttl}
}

// Acquire marks the pair as merged. It returns false if it already was.
func (g *SyncGuard) Acquire(ctx context.Context, sessionID, userID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, SyncedKey(sessionID, userID), time.Now().UTC().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire cart sync guard: %w", err)
	}
	return ok, nil
}

// Release removes the mark so the merge can be retried
func (g *SyncGuard) Release(ctx context.Context, sessionID, userID string) error {
	return g.client.Del(ctx, SyncedKey(sessionID, userID)).Err()
}
