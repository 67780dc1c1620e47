// Package throttle tracks live connection counts per remote address for
// flood detection and bulk eviction.
package throttle

import "sync"

// Table is a concurrency-safe mapping from remote address to the number of
// currently-admitted connections from that address. Each exported operation
// is atomic on its own; the acceptor additionally serializes admission-path
// mutations so that per-address counts and the session registry are updated
// as one consistent unit.
type Table struct {
	counts map[string]int
	sync.RWMutex
}

// NewTable creates and returns a new empty Table.
func NewTable() *Table {
	return &Table{counts: make(map[string]int)}
}

// Increment raises the count for the given address by one, creating the entry
// at zero first if the address has not been seen before.
//
// Parameters:
//   - addr: The remote address being admitted
//
// Returns:
//   - The new count for the address
func (t *Table) Increment(addr string) int {
	t.Lock()
	defer t.Unlock()
	t.counts[addr]++
	return t.counts[addr]
}

// Decrement lowers the count for the given address by one, removing the entry
// when it reaches zero. Decrementing an absent address is a no-op, so the
// stale window after an eviction sweep cannot drive a count negative.
//
// Parameters:
//   - addr: The remote address whose session closed
func (t *Table) Decrement(addr string) {
	t.Lock()
	defer t.Unlock()
	n, ok := t.counts[addr]
	if !ok {
		return
	}
	if n <= 1 {
		delete(t.counts, addr)
		return
	}
	t.counts[addr] = n - 1
}

// Count returns the live connection count recorded for the given address, or
// zero if the address is not tracked.
//
// Parameters:
//   - addr: The remote address to look up
//
// Returns:
//   - The recorded count
func (t *Table) Count(addr string) int {
	t.RLock()
	defer t.RUnlock()
	return t.counts[addr]
}

// Has reports whether the table holds an entry for the given address.
//
// Parameters:
//   - addr: The remote address to check
//
// Returns:
//   - true if the address is tracked, false otherwise
func (t *Table) Has(addr string) bool {
	t.RLock()
	defer t.RUnlock()
	_, ok := t.counts[addr]
	return ok
}

// Len returns the number of tracked addresses.
//
// Returns:
//   - The number of distinct addresses with a live count
func (t *Table) Len() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.counts)
}

// SweepAbove removes every address whose count is strictly greater than
// threshold and returns the removed addresses. This is the marking step of an
// eviction sweep: the caller is expected to evict the returned addresses'
// sessions from the registry within the same admission critical section.
//
// Parameters:
//   - threshold: Counts above this value mark an address for eviction
//
// Returns:
//   - The addresses removed from the table
func (t *Table) SweepAbove(threshold int) []string {
	t.Lock()
	defer t.Unlock()

	var marked []string
	for addr, n := range t.counts {
		if n > threshold {
			delete(t.counts, addr)
			marked = append(marked, addr)
		}
	}

	return marked
}

// Reset drops every tracked address. Used when the acceptor unbinds and all
// sessions are force-closed.
func (t *Table) Reset() {
	t.Lock()
	defer t.Unlock()
	t.counts = make(map[string]int)
}
