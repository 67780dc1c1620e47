package acceptor

import (
	"time"

	"github.com/cyberinferno/go-gatekeeper/banlist"
	"github.com/cyberinferno/go-gatekeeper/metrics"
)

// Option configures an Acceptor at construction time.
type Option func(*Acceptor)

// WithLimits overrides the default admission-control thresholds. Mainly used
// to lower the sweep trigger in tests.
//
// Parameters:
//   - limits: The thresholds to use
//
// Returns:
//   - An Option applying the limits
func WithLimits(limits Limits) Option {
	return func(a *Acceptor) {
		a.limits = limits
	}
}

// WithMetrics attaches a metrics collector. Without this option a no-op
// collector is used.
//
// Parameters:
//   - collector: The collector to record admission metrics to
//
// Returns:
//   - An Option attaching the collector
func WithMetrics(collector metrics.Collector) Option {
	return func(a *Acceptor) {
		a.metrics = collector
	}
}

// WithBanList enables post-eviction address banning: addresses removed by an
// eviction sweep are banned for ttl, and banned addresses are dropped at the
// admission gate. Without this option eviction carries no ban, matching the
// base admission policy.
//
// Parameters:
//   - bans: The ban store to use
//   - ttl: How long evicted addresses stay banned
//
// Returns:
//   - An Option enabling the ban list
func WithBanList(bans banlist.BanList, ttl time.Duration) Option {
	return func(a *Acceptor) {
		a.bans = bans
		a.banTTL = ttl
	}
}

// WithSerialStart sets the value the serial number counter starts from; the
// first admitted session receives startValue+1.
//
// Parameters:
//   - startValue: The initial counter value
//
// Returns:
//   - An Option setting the counter start
func WithSerialStart(startValue uint32) Option {
	return func(a *Acceptor) {
		a.serialStart = startValue
	}
}
