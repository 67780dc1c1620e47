// Package banlist provides a temporary ban store for remote addresses that
// were removed by an eviction sweep. Bans expire after a TTL; while banned, an
// address is dropped at the admission gate before a session is created.
package banlist

import (
	"context"
	"time"
)

// BanList is an interface for recording and querying temporarily banned
// remote addresses. Implementations must be safe for concurrent use.
type BanList interface {
	// Ban records the address as banned for the given TTL, replacing any
	// existing ban.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - addr: The remote address to ban
	//   - ttl: How long the ban should last
	//
	// Returns:
	//   - An error if the ban could not be stored
	Ban(ctx context.Context, addr string, ttl time.Duration) error

	// IsBanned reports whether the address currently has an unexpired ban.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - addr: The remote address to check
	//
	// Returns:
	//   - true if the address is banned, false otherwise
	//   - An error if the store could not be queried
	IsBanned(ctx context.Context, addr string) (bool, error)

	// Unban removes a ban before it expires. Unbanning an address that is not
	// banned is a no-op.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - addr: The remote address to unban
	//
	// Returns:
	//   - An error if the removal failed
	Unban(ctx context.Context, addr string) error
}
