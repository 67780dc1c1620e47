// Package acceptor implements the connection-acceptance layer of the server:
// it gates inbound connections through a bind/unbind lifecycle, assigns each
// admitted connection a process-lifetime-unique serial number, tracks live
// sessions and per-address connection counts, and defends against connection
// floods with a bulk eviction sweep.
package acceptor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/go-gatekeeper/banlist"
	"github.com/cyberinferno/go-gatekeeper/logger"
	"github.com/cyberinferno/go-gatekeeper/metrics"
	"github.com/cyberinferno/go-gatekeeper/serial"
	"github.com/cyberinferno/go-gatekeeper/session"
	"github.com/cyberinferno/go-gatekeeper/throttle"
)

// Drop reasons reported to the metrics collector by the admission gate.
const (
	DropNotListening = "not_listening"
	DropModeChanging = "mode_changing"
	DropBanned       = "banned"
)

// Acceptor admits raw connections delivered by a Transport, registers them as
// sessions, and enforces the admission-control policy. It implements
// ConnHandler; the transport invokes OnNewConnection concurrently from many
// workers, and every admission runs its registry insert, throttle increment,
// size check, and optional eviction sweep inside one critical section so the
// policy always sees a consistent joint snapshot of both structures.
type Acceptor struct {
	logger      logger.Logger
	metrics     metrics.Collector
	transport   Transport
	limits      Limits
	bans        banlist.BanList
	banTTL      time.Duration
	serialStart uint32

	serials  *serial.Generator
	registry *session.Registry
	ips      *throttle.Table

	// mu is the admission critical section. It covers registry insert,
	// throttle increment, the sweep-trigger size check, and the eviction
	// sweep itself. Socket closes never happen under mu.
	mu sync.Mutex

	state        atomic.Int32
	modeChanging atomic.Bool
}

// New creates an Acceptor in the Closed state using the given transport.
//
// Parameters:
//   - transport: The transport that will deliver accepted connections
//   - log: The logger for admission and lifecycle events
//   - opts: Optional configuration (limits, metrics, ban list, serial start)
//
// Returns:
//   - A new Acceptor instance
func New(transport Transport, log logger.Logger, opts ...Option) *Acceptor {
	a := &Acceptor{
		logger:    log,
		metrics:   &metrics.NoopCollector{},
		transport: transport,
		limits:    DefaultLimits(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.serials = serial.NewGenerator(a.serialStart)
	a.registry = session.NewRegistry()
	a.ips = throttle.NewTable()
	a.state.Store(int32(Closed))

	return a
}

// Bind transitions Closed -> Binding -> Listening by asking the transport to
// bind the given address. On bind failure the error is logged and returned
// and the acceptor goes back to Closed with nothing partially applied; this
// layer never retries binds itself. Rebinding after an Unbind is supported.
//
// Parameters:
//   - addr: The address to bind, e.g. ":8484"
//
// Returns:
//   - ErrNotClosed if the acceptor is not Closed, or the transport's bind error
func (a *Acceptor) Bind(addr string) error {
	if !a.state.CompareAndSwap(int32(Closed), int32(Binding)) {
		return ErrNotClosed
	}

	if err := a.transport.Listen(addr, a); err != nil {
		a.state.Store(int32(Closed))
		a.logger.Error("failed to bind", logger.Field{Key: "addr", Value: addr}, logger.Field{Key: "error", Value: err})
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	a.state.Store(int32(Listening))
	a.logger.Info("listening", logger.Field{Key: "addr", Value: addr})
	return nil
}

// Unbind transitions Listening -> Unbinding -> Closed: it shuts the transport
// down, waits for in-flight admissions to drain, then force-closes every
// registered session and clears the registry and throttle table. A second
// Unbind returns ErrNotListening instead of tearing anything down twice.
//
// Parameters:
//   - ctx: Bounds how long to wait for the transport to drain
//
// Returns:
//   - ErrNotListening if the acceptor is not Listening, or the transport's
//     shutdown error
func (a *Acceptor) Unbind(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(Listening), int32(Unbinding)) {
		return ErrNotListening
	}

	err := a.transport.Shutdown(ctx)

	a.mu.Lock()
	closed := a.registry.RemoveIf(func(*session.Session) bool { return true })
	a.ips.Reset()
	a.mu.Unlock()

	for _, s := range closed {
		_ = s.Close()
		a.metrics.SessionClosed()
	}

	a.state.Store(int32(Closed))
	a.logger.Info("unbound", logger.Field{Key: "closed_sessions", Value: len(closed)})

	if err != nil {
		return fmt.Errorf("transport shutdown: %w", err)
	}

	return nil
}

// OnNewConnection implements ConnHandler. Unless the acceptor is Listening
// with mode changes not in progress, the raw connection is dropped and closed
// without touching the registry. Otherwise the connection is admitted: a
// session is created under a fresh serial number, registered, counted against
// its source address, and the admission policy is evaluated.
//
// Parameters:
//   - conn: The accepted raw connection; ownership passes to the acceptor
func (a *Acceptor) OnNewConnection(conn net.Conn) {
	if conn == nil {
		return
	}

	if State(a.state.Load()) != Listening {
		a.drop(conn, DropNotListening)
		return
	}

	if a.modeChanging.Load() {
		a.drop(conn, DropModeChanging)
		return
	}

	remoteIP := session.RemoteIP(conn.RemoteAddr())
	if a.bans != nil {
		banned, err := a.bans.IsBanned(context.Background(), remoteIP)
		if err != nil {
			// A broken ban store must not take admission down with it.
			a.logger.Warn("ban lookup failed", logger.Field{Key: "addr", Value: remoteIP}, logger.Field{Key: "error", Value: err})
		} else if banned {
			a.drop(conn, DropBanned)
			return
		}
	}

	a.admit(conn, remoteIP)
}

// admit registers the connection and evaluates the admission policy inside
// one critical section. Evicted sockets are closed only after the lock is
// released so a slow close cannot stall other admissions.
func (a *Acceptor) admit(conn net.Conn, remoteIP string) {
	var (
		evictedAddrs []string
		evicted      []*session.Session
	)

	a.mu.Lock()
	sess := session.New(a.serials.Next(), conn)
	a.registry.Insert(sess)
	ipCount := a.ips.Increment(remoteIP)

	// The sweep trigger is only consulted for connections at or under the
	// soft threshold, and the accept report is suppressed above it. Flagged
	// sources therefore never trigger a sweep themselves; the next ordinary
	// admission does.
	if ipCount <= a.limits.SoftFlagThreshold && a.registry.Len() > a.limits.SessionSweepTrigger {
		a.logger.Error("session count exceeded", logger.Field{Key: "count", Value: a.registry.Len()})
		evictedAddrs = a.ips.SweepAbove(a.limits.EvictCountThreshold)
		if len(evictedAddrs) > 0 {
			marked := make(map[string]struct{}, len(evictedAddrs))
			for _, addr := range evictedAddrs {
				marked[addr] = struct{}{}
			}

			evicted = a.registry.RemoveIf(func(s *session.Session) bool {
				_, ok := marked[s.RemoteIP()]
				return ok
			})
		}
	}
	a.mu.Unlock()

	a.metrics.ConnectionAccepted()

	if ipCount > a.limits.SoftFlagThreshold {
		a.logger.Warn("ip connection count exceeded",
			logger.Field{Key: "addr", Value: remoteIP},
			logger.Field{Key: "count", Value: ipCount})
	} else {
		a.logger.Info("connection accepted",
			logger.Field{Key: "addr", Value: remoteIP},
			logger.Field{Key: "serial_no", Value: sess.SerialNo()})
	}

	if len(evictedAddrs) > 0 {
		a.finishSweep(evictedAddrs, evicted)
	}
}

// finishSweep runs the parts of an eviction sweep that must not hold the
// admission lock: closing the evicted sockets, reporting, and banning.
// Close failures are tolerated; the registry bookkeeping already happened.
func (a *Acceptor) finishSweep(evictedAddrs []string, evicted []*session.Session) {
	perAddr := make(map[string]int, len(evictedAddrs))
	for _, s := range evicted {
		_ = s.Close()
		perAddr[s.RemoteIP()]++
	}

	for _, addr := range evictedAddrs {
		a.logger.Error("evicting address",
			logger.Field{Key: "addr", Value: addr},
			logger.Field{Key: "sessions", Value: perAddr[addr]})
		a.metrics.AddressEvicted(perAddr[addr])

		if a.bans != nil {
			if err := a.bans.Ban(context.Background(), addr, a.banTTL); err != nil {
				a.logger.Warn("failed to ban evicted address",
					logger.Field{Key: "addr", Value: addr},
					logger.Field{Key: "error", Value: err})
			}
		}
	}
}

// drop closes a connection refused by the admission gate.
func (a *Acceptor) drop(conn net.Conn, reason string) {
	_ = conn.Close()
	a.metrics.ConnectionDropped(reason)
	a.logger.Debug("connection dropped",
		logger.Field{Key: "addr", Value: session.RemoteIP(conn.RemoteAddr())},
		logger.Field{Key: "reason", Value: reason})
}

// GetSession returns the session registered under the given serial number.
//
// Parameters:
//   - serialNo: The serial number to look up
//
// Returns:
//   - The session and true if found, or nil and false otherwise
func (a *Acceptor) GetSession(serialNo uint32) (*session.Session, bool) {
	return a.registry.Get(serialNo)
}

// GetSessionCount returns the number of currently registered sessions.
//
// Returns:
//   - The current session count
func (a *Acceptor) GetSessionCount() int {
	return a.registry.Len()
}

// RemoveSession deregisters a session, decrements its address's throttle
// count, and closes its connection. Removing a session that is no longer
// registered (already evicted or removed) only closes it; the call is
// idempotent.
//
// Parameters:
//   - s: The session to remove; nil is a no-op
func (a *Acceptor) RemoveSession(s *session.Session) {
	if s == nil {
		return
	}

	a.mu.Lock()
	_, registered := a.registry.Get(s.SerialNo())
	if registered {
		a.registry.Remove(s.SerialNo())
		a.ips.Decrement(s.RemoteIP())
	}
	a.mu.Unlock()

	_ = s.Close()
	if registered {
		a.metrics.SessionClosed()
	}
}

// IPCount returns the live connection count recorded for a remote address.
// Diagnostic accessor; zero means the address is not tracked.
//
// Parameters:
//   - addr: The remote address to look up
//
// Returns:
//   - The recorded count
func (a *Acceptor) IPCount(addr string) int {
	return a.ips.Count(addr)
}

// State returns the current lifecycle state.
//
// Returns:
//   - The current State
func (a *Acceptor) State() State {
	return State(a.state.Load())
}

// IsClosed reports whether the acceptor is in the Closed state.
//
// Returns:
//   - true if Closed, false otherwise
func (a *Acceptor) IsClosed() bool {
	return a.State() == Closed
}

// IsModeChanging reports whether admission is currently paused for a mode
// change.
//
// Returns:
//   - true if mode-changing, false otherwise
func (a *Acceptor) IsModeChanging() bool {
	return a.modeChanging.Load()
}

// SetModeChanging pauses or resumes admission without a lifecycle transition.
// While set, new connections are dropped at the gate; existing sessions are
// untouched.
//
// Parameters:
//   - changing: true to pause admission, false to resume
func (a *Acceptor) SetModeChanging(changing bool) {
	a.modeChanging.Store(changing)
	a.logger.Info("mode changing", logger.Field{Key: "paused", Value: changing})
}
