package banlist

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryBanList is an in-memory implementation of the BanList interface built
// on go-cache, which handles TTL expiry and periodic cleanup of expired bans.
// Suitable for a single-process deployment.
type MemoryBanList struct {
	cache *cache.Cache
}

// NewMemoryBanList creates a new in-memory ban list. Expired bans are purged
// in the background at the given cleanup interval; lookups between cleanups
// still treat expired entries as not banned.
//
// Parameters:
//   - cleanupInterval: Interval at which expired bans are removed from memory
//
// Returns:
//   - A new MemoryBanList instance
func NewMemoryBanList(cleanupInterval time.Duration) *MemoryBanList {
	return &MemoryBanList{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

// Ban implements BanList. The context is unused; the in-memory store cannot block.
func (b *MemoryBanList) Ban(ctx context.Context, addr string, ttl time.Duration) error {
	b.cache.Set(addr, struct{}{}, ttl)
	return nil
}

// IsBanned implements BanList.
func (b *MemoryBanList) IsBanned(ctx context.Context, addr string) (bool, error) {
	_, found := b.cache.Get(addr)
	return found, nil
}

// Unban implements BanList.
func (b *MemoryBanList) Unban(ctx context.Context, addr string) error {
	b.cache.Delete(addr)
	return nil
}
