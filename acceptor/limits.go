package acceptor

// Limits holds the admission-control thresholds. The three knobs are
// deliberately independent: the soft flag threshold only affects logging, and
// the eviction threshold is only consulted during a sweep triggered by the
// global session count. They are not a unified rate limiter; the intended
// defense is coarse, rare, bulk eviction.
type Limits struct {
	// SoftFlagThreshold is the per-address live connection count above which
	// new connections from that address are logged as suspicious. They are
	// still admitted.
	SoftFlagThreshold int

	// SessionSweepTrigger is the global registered-session count above which
	// an admission triggers an eviction sweep.
	SessionSweepTrigger int

	// EvictCountThreshold is the per-address live connection count above
	// which an address is evicted during a sweep.
	EvictCountThreshold int
}

// DefaultLimits returns the production thresholds: flag at 30 connections per
// address, sweep when more than 5000 sessions are registered, evict addresses
// holding more than 10 connections.
//
// Returns:
//   - The default Limits
func DefaultLimits() Limits {
	return Limits{
		SoftFlagThreshold:   30,
		SessionSweepTrigger: 5000,
		EvictCountThreshold: 10,
	}
}
