// Package listener provides the TCP transport that owns the listening socket
// and delivers accepted connections to the acceptor's admission callback.
package listener

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/go-gatekeeper/acceptor"
	"github.com/cyberinferno/go-gatekeeper/logger"
)

const (
	defaultWorkers        = 8
	defaultMaxConnections = 1024
)

// TCPTransport implements acceptor.Transport over a net.Listener. A single
// accept loop feeds accepted connections into a buffered channel drained by a
// pool of worker goroutines, so the admission callback is invoked from
// multiple execution contexts concurrently. Configure the exported fields
// before calling Listen; zero values fall back to defaults.
type TCPTransport struct {
	Logger logger.Logger

	// MaxConnections sizes the pending-connection buffer between the accept
	// loop and the workers. Connections beyond it queue in the kernel backlog.
	MaxConnections int

	// Workers is the number of goroutines delivering connections to the handler.
	Workers int

	ln      net.Listener
	conns   chan net.Conn
	workers *errgroup.Group
	running atomic.Bool
}

// Listen implements acceptor.Transport. It binds addr, starts the worker
// pool, and starts the accept loop. On bind failure nothing is started and
// the error is returned.
//
// Parameters:
//   - addr: The address to bind, e.g. ":8484"
//   - handler: The handler invoked once per accepted connection
//
// Returns:
//   - An error if binding the address failed
func (t *TCPTransport) Listen(addr string, handler acceptor.ConnHandler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	if t.Logger == nil {
		t.Logger = logger.NewNopLogger()
	}

	maxConns := t.MaxConnections
	if maxConns <= 0 {
		maxConns = defaultMaxConnections
	}

	workers := t.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	t.ln = ln
	t.conns = make(chan net.Conn, maxConns)
	t.running.Store(true)

	t.workers = new(errgroup.Group)
	for i := 0; i < workers; i++ {
		t.workers.Go(func() error {
			for conn := range t.conns {
				handler.OnNewConnection(conn)
			}
			return nil
		})
	}

	go t.acceptLoop()

	t.Logger.Info("transport listening",
		logger.Field{Key: "addr", Value: ln.Addr().String()},
		logger.Field{Key: "workers", Value: workers})
	return nil
}

// acceptLoop accepts connections until the listener closes and hands each one
// to the worker pool. Closing the channel when the loop exits lets the
// workers drain any queued connections and then stop.
func (t *TCPTransport) acceptLoop() {
	defer close(t.conns)

	for {
		conn, err := t.ln.Accept()
		if err != nil {
			if !t.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}

			t.Logger.Error("accept error", logger.Field{Key: "error", Value: err})
			continue
		}

		t.conns <- conn
	}
}

// Shutdown implements acceptor.Transport. It closes the listener, lets the
// workers finish the connections already handed to them, and waits for the
// pool to exit. Safe to call while connections are actively being delivered;
// a second call is a no-op.
//
// Parameters:
//   - ctx: Bounds how long to wait for the workers to drain
//
// Returns:
//   - The listener close error, or ctx.Err() if draining timed out
func (t *TCPTransport) Shutdown(ctx context.Context) error {
	if !t.running.CompareAndSwap(true, false) {
		return nil
	}

	err := t.ln.Close()

	done := make(chan struct{})
	go func() {
		_ = t.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.Logger.Info("transport stopped")
	return err
}

// Addr returns the bound address, or "" before Listen succeeds. Useful when
// listening on port 0.
//
// Returns:
//   - The listener's address string
func (t *TCPTransport) Addr() string {
	if t.ln == nil {
		return ""
	}

	return t.ln.Addr().String()
}
