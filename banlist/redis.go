package banlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// banKeyPrefix namespaces ban entries so the store can share a Redis database
// with other keys.
const banKeyPrefix = "gatekeeper:ban:"

// redisBanList is a Redis-based implementation of the BanList interface.
// Ban state is shared across every gateway process pointed at the same Redis,
// so an address evicted by one gateway is refused by all of them until the
// TTL expires. Redis handles expiry itself via SET with expiration.
type redisBanList struct {
	client *redis.Client
}

// NewRedisBanList creates a Redis-backed ban list.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	bans := banlist.NewRedisBanList(client)
//
// Parameters:
//   - client: The Redis client to store bans through
//
// Returns:
//   - A BanList backed by Redis
func NewRedisBanList(client *redis.Client) BanList {
	return &redisBanList{
		client: client,
	}
}

// Ban implements BanList.
func (b *redisBanList) Ban(ctx context.Context, addr string, ttl time.Duration) error {
	if err := b.client.Set(ctx, banKeyPrefix+addr, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store ban for %s: %w", addr, err)
	}

	return nil
}

// IsBanned implements BanList.
func (b *redisBanList) IsBanned(ctx context.Context, addr string) (bool, error) {
	err := b.client.Get(ctx, banKeyPrefix+addr).Err()
	if err == nil {
		return true, nil
	}

	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	return false, fmt.Errorf("redis get error: %w", err)
}

// Unban implements BanList.
func (b *redisBanList) Unban(ctx context.Context, addr string) error {
	if err := b.client.Del(ctx, banKeyPrefix+addr).Err(); err != nil {
		return fmt.Errorf("failed to remove ban for %s: %w", addr, err)
	}

	return nil
}
