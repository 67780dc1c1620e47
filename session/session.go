// Package session holds the server-side handle for an admitted connection and
// the registry that tracks all live handles by serial number.
package session

import (
	"net"
	"sync/atomic"
)

// Session represents one admitted connection. The serial number and remote IP
// are assigned at admission time and never change. The underlying net.Conn is
// owned by the transport layer; the session only references it so that it can
// be closed on eviction or removal.
type Session struct {
	serialNo uint32
	remoteIP string
	conn     net.Conn
	closed   atomic.Bool
}

// New creates a Session for an accepted connection. The remote IP is taken
// from the connection's remote address with the port stripped; if the address
// has no host:port form the full string is used as-is.
//
// Parameters:
//   - serialNo: The process-lifetime-unique serial number assigned to this session
//   - conn: The accepted connection
//
// Returns:
//   - A new Session instance
func New(serialNo uint32, conn net.Conn) *Session {
	return &Session{
		serialNo: serialNo,
		remoteIP: RemoteIP(conn.RemoteAddr()),
		conn:     conn,
	}
}

// RemoteIP extracts the IP portion of a network address, dropping the port.
// Addresses without a host:port form are returned unchanged.
//
// Parameters:
//   - addr: The address to extract from; may be nil
//
// Returns:
//   - The IP as a string, or "" for a nil address
func RemoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}

	return host
}

// SerialNo returns the serial number assigned at admission time.
//
// Returns:
//   - The session's uint32 serial number
func (s *Session) SerialNo() uint32 {
	return s.serialNo
}

// RemoteIP returns the remote peer's IP in string form, without the port.
//
// Returns:
//   - The remote IP string
func (s *Session) RemoteIP() string {
	return s.remoteIP
}

// Conn returns the underlying connection. Callers must not close it directly;
// use Close so the session's closed flag stays accurate.
//
// Returns:
//   - The underlying net.Conn
func (s *Session) Conn() net.Conn {
	return s.conn
}

// Close closes the underlying connection. It is safe to call multiple times;
// only the first call closes the connection, later calls return nil. A close
// error from an already-dead socket is returned but callers in the eviction
// path are expected to ignore it.
//
// Returns:
//   - An error if closing the connection failed
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.conn.Close()
}

// IsClosed reports whether Close has been called on this session.
//
// Returns:
//   - true if the session has been closed, false otherwise
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}
