package acceptor

import (
	"context"
	"net"
)

// ConnHandler is the narrow capability interface the transport layer invokes
// for each accepted raw connection. The Acceptor implements it; transports
// depend on nothing else of the Acceptor's internals.
type ConnHandler interface {
	// OnNewConnection is called once per accepted connection, possibly from
	// many worker goroutines concurrently. The handler takes ownership of the
	// connection: it either admits it or closes it.
	//
	// Parameters:
	//   - conn: The accepted raw connection
	OnNewConnection(conn net.Conn)
}

// Transport is the external collaborator that owns the listening socket and
// delivers accepted connections to a ConnHandler.
type Transport interface {
	// Listen binds the given address and starts delivering accepted
	// connections to the handler from background workers. It returns an error
	// if the bind fails; on success it returns immediately while accepting
	// continues in the background.
	//
	// Parameters:
	//   - addr: The address to bind, e.g. ":8484"
	//   - handler: The handler invoked once per accepted connection
	//
	// Returns:
	//   - An error if binding the address failed
	Listen(addr string, handler ConnHandler) error

	// Shutdown closes the listening socket and stops the workers. It returns
	// only after every in-flight handler invocation has completed, so callers
	// can safely tear down handler state afterwards.
	//
	// Parameters:
	//   - ctx: Bounds how long to wait for in-flight handlers to drain
	//
	// Returns:
	//   - An error if closing the listener failed or the context expired
	Shutdown(ctx context.Context) error
}
